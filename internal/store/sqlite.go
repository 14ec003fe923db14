// Package store provides storage backends for SantAI.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/ParthPatel00/SantAI/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a user.
func (s *SQLiteStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT OR REPLACE INTO flow_states (user_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var stateDataJSON string
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "userID", state.UserID)
			return err
		}
		stateDataJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.UserID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves flow state for a user.
func (s *SQLiteStore) GetFlowState(userID, flowType string) (*models.FlowState, error) {
	query := `SELECT user_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE user_id = ? AND flow_type = ?`

	var state models.FlowState
	var stateDataJSON string

	err := s.db.QueryRow(query, userID, flowType).Scan(
		&state.UserID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetFlowState not found", "userID", userID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return nil, err
	}

	if stateDataJSON != "" {
		state.StateData = make(map[models.DataKey]string)
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			slog.Error("SQLiteStore GetFlowState JSON unmarshal failed", "error", err, "userID", userID)
			// Continue with empty map rather than failing
			state.StateData = make(map[models.DataKey]string)
		}
	}

	slog.Debug("SQLiteStore GetFlowState found", "userID", userID, "flowType", flowType, "state", state.CurrentState)
	return &state, nil
}

// DeleteFlowState removes flow state for a user.
func (s *SQLiteStore) DeleteFlowState(userID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE user_id = ? AND flow_type = ?`, userID, flowType)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "userID", userID, "flowType", flowType)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "userID", userID, "flowType", flowType)
	return nil
}

// DeleteIdleFlowStates evicts sessions not updated since the cutoff.
func (s *SQLiteStore) DeleteIdleFlowStates(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM flow_states WHERE updated_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore DeleteIdleFlowStates failed", "error", err)
		return 0, fmt.Errorf("failed to delete idle flow states: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore DeleteIdleFlowStates succeeded", "removed", removed)
	return int(removed), nil
}

// AddReceipt records an outbound delivery receipt.
func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES (?, ?, ?)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	slog.Debug("SQLiteStore AddReceipt succeeded", "to", r.To, "status", r.Status)
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY time`)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("SQLiteStore GetReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetReceipts rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// AddResponse records an inbound user message.
func (s *SQLiteStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES (?, ?, ?)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns all recorded inbound messages.
func (s *SQLiteStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses ORDER BY time`)
	if err != nil {
		slog.Error("SQLiteStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("SQLiteStore GetResponses scan failed", "error", err)
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
func (s *SQLiteStore) SavePaymentRequest(req models.PaymentRequest) error {
	query := `
		INSERT OR REPLACE INTO payment_requests (payment_id, gift_id, gift_name, price, description, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, req.PaymentID, req.GiftID, req.GiftName, req.Price,
		nilIfEmpty(req.Description), req.UserID, req.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SavePaymentRequest failed", "error", err, "paymentID", req.PaymentID)
		return fmt.Errorf("failed to insert payment request %s: %w", req.PaymentID, err)
	}
	slog.Debug("SQLiteStore SavePaymentRequest succeeded", "paymentID", req.PaymentID, "giftID", req.GiftID)
	return nil
}

// GetPaymentRequest retrieves a pending checkout, or nil when absent.
func (s *SQLiteStore) GetPaymentRequest(paymentID string) (*models.PaymentRequest, error) {
	query := `SELECT payment_id, gift_id, gift_name, price, description, user_id, created_at
			  FROM payment_requests WHERE payment_id = ?`

	var req models.PaymentRequest
	var description sql.NullString
	err := s.db.QueryRow(query, paymentID).Scan(
		&req.PaymentID, &req.GiftID, &req.GiftName, &req.Price, &description, &req.UserID, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPaymentRequest failed", "error", err, "paymentID", paymentID)
		return nil, err
	}
	req.Description = description.String
	return &req, nil
}

// SavePaymentResult stores the outcome of a processed payment.
func (s *SQLiteStore) SavePaymentResult(res models.PaymentResult) error {
	query := `
		INSERT OR REPLACE INTO payment_results (payment_id, success, transaction_id, amount, status, timestamp, gift_name, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, res.PaymentID, res.Success, nilIfEmpty(res.TransactionID),
		nilIfEmpty(res.Amount), nilIfEmpty(res.Status), nilIfEmpty(res.Timestamp),
		nilIfEmpty(res.GiftName), nilIfEmpty(res.Error))
	if err != nil {
		slog.Error("SQLiteStore SavePaymentResult failed", "error", err, "paymentID", res.PaymentID)
		return fmt.Errorf("failed to insert payment result %s: %w", res.PaymentID, err)
	}
	return nil
}

// GetPaymentResult retrieves a processed payment outcome, or nil when absent.
func (s *SQLiteStore) GetPaymentResult(paymentID string) (*models.PaymentResult, error) {
	query := `SELECT payment_id, success, transaction_id, amount, status, timestamp, gift_name, error
			  FROM payment_results WHERE payment_id = ?`

	var res models.PaymentResult
	var txn, amount, status, ts, giftName, errMsg sql.NullString
	err := s.db.QueryRow(query, paymentID).Scan(
		&res.PaymentID, &res.Success, &txn, &amount, &status, &ts, &giftName, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPaymentResult failed", "error", err, "paymentID", paymentID)
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

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
