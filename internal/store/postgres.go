// Package store provides storage backends for SantAI.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/ParthPatel00/SantAI/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a user.
func (s *PostgresStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT INTO flow_states (user_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, flow_type) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			state_data = EXCLUDED.state_data,
			updated_at = EXCLUDED.updated_at`

	var stateDataJSON string
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "userID", state.UserID)
			return err
		}
		stateDataJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.UserID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("PostgresStore SaveFlowState succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves flow state for a user.
func (s *PostgresStore) GetFlowState(userID, flowType string) (*models.FlowState, error) {
	query := `SELECT user_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE user_id = $1 AND flow_type = $2`

	var state models.FlowState
	var stateDataJSON string

	err := s.db.QueryRow(query, userID, flowType).Scan(
		&state.UserID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetFlowState not found", "userID", userID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return nil, err
	}

	if stateDataJSON != "" {
		state.StateData = make(map[models.DataKey]string)
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			slog.Error("PostgresStore GetFlowState JSON unmarshal failed", "error", err, "userID", userID)
			state.StateData = make(map[models.DataKey]string)
		}
	}

	return &state, nil
}

// DeleteFlowState removes flow state for a user.
func (s *PostgresStore) DeleteFlowState(userID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE user_id = $1 AND flow_type = $2`, userID, flowType)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return err
	}
	return nil
}

// DeleteIdleFlowStates evicts sessions not updated since the cutoff.
func (s *PostgresStore) DeleteIdleFlowStates(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM flow_states WHERE updated_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore DeleteIdleFlowStates failed", "error", err)
		return 0, fmt.Errorf("failed to delete idle flow states: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("PostgresStore DeleteIdleFlowStates succeeded", "removed", removed)
	return int(removed), nil
}

// AddReceipt records an outbound delivery receipt.
func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY time`)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("PostgresStore GetReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// AddResponse records an inbound user message.
func (s *PostgresStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES ($1, $2, $3)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns all recorded inbound messages.
func (s *PostgresStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses ORDER BY time`)
	if err != nil {
		slog.Error("PostgresStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("PostgresStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// SavePaymentRequest stores a pending checkout.
func (s *PostgresStore) SavePaymentRequest(req models.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (payment_id, gift_id, gift_name, price, description, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_id) DO UPDATE SET
			gift_id = EXCLUDED.gift_id,
			gift_name = EXCLUDED.gift_name,
			price = EXCLUDED.price,
			description = EXCLUDED.description,
			user_id = EXCLUDED.user_id`
	_, err := s.db.Exec(query, req.PaymentID, req.GiftID, req.GiftName, req.Price,
		nilIfEmpty(req.Description), req.UserID, req.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SavePaymentRequest failed", "error", err, "paymentID", req.PaymentID)
		return fmt.Errorf("failed to insert payment request %s: %w", req.PaymentID, err)
	}
	return nil
}

// GetPaymentRequest retrieves a pending checkout, or nil when absent.
func (s *PostgresStore) GetPaymentRequest(paymentID string) (*models.PaymentRequest, error) {
	query := `SELECT payment_id, gift_id, gift_name, price, description, user_id, created_at
			  FROM payment_requests WHERE payment_id = $1`

	var req models.PaymentRequest
	var description sql.NullString
	err := s.db.QueryRow(query, paymentID).Scan(
		&req.PaymentID, &req.GiftID, &req.GiftName, &req.Price, &description, &req.UserID, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPaymentRequest failed", "error", err, "paymentID", paymentID)
		return nil, err
	}
	req.Description = description.String
	return &req, nil
}

// SavePaymentResult stores the outcome of a processed payment.
func (s *PostgresStore) SavePaymentResult(res models.PaymentResult) error {
	query := `
		INSERT INTO payment_results (payment_id, success, transaction_id, amount, status, timestamp, gift_name, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO UPDATE SET
			success = EXCLUDED.success,
			transaction_id = EXCLUDED.transaction_id,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			timestamp = EXCLUDED.timestamp,
			gift_name = EXCLUDED.gift_name,
			error = EXCLUDED.error`
	_, err := s.db.Exec(query, res.PaymentID, res.Success, nilIfEmpty(res.TransactionID),
		nilIfEmpty(res.Amount), nilIfEmpty(res.Status), nilIfEmpty(res.Timestamp),
		nilIfEmpty(res.GiftName), nilIfEmpty(res.Error))
	if err != nil {
		slog.Error("PostgresStore SavePaymentResult failed", "error", err, "paymentID", res.PaymentID)
		return fmt.Errorf("failed to insert payment result %s: %w", res.PaymentID, err)
	}
	return nil
}

// GetPaymentResult retrieves a processed payment outcome, or nil when absent.
func (s *PostgresStore) GetPaymentResult(paymentID string) (*models.PaymentResult, error) {
	query := `SELECT payment_id, success, transaction_id, amount, status, timestamp, gift_name, error
			  FROM payment_results WHERE payment_id = $1`

	var res models.PaymentResult
	var txn, amount, status, ts, giftName, errMsg sql.NullString
	err := s.db.QueryRow(query, paymentID).Scan(
		&res.PaymentID, &res.Success, &txn, &amount, &status, &ts, &giftName, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPaymentResult failed", "error", err, "paymentID", paymentID)
		return nil, err
	}
	res.TransactionID = txn.String
	res.Amount = amount.String
	res.Status = status.String
	res.Timestamp = ts.String
	res.GiftName = giftName.String
	res.Error = errMsg.String
	return &res, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
