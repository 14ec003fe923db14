// Package store provides storage backends for SantAI.
//
// It persists conversation flow state, message history, and mock payment
// records. SQLite and PostgreSQL implementations share one Store interface;
// an in-memory implementation backs tests and keyless local runs.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite" for anything that looks like a file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store defines the persistence operations SantAI modules depend on.
type Store interface {
	// Flow state for the conversation state machine.
	SaveFlowState(state models.FlowState) error
	GetFlowState(userID string, flowType string) (*models.FlowState, error)
	DeleteFlowState(userID string, flowType string) error
	// DeleteIdleFlowStates evicts sessions not updated since the cutoff and
	// returns how many were removed.
	DeleteIdleFlowStates(cutoff time.Time) (int, error)

	// Message audit trail.
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)
	AddResponse(r models.Response) error
	GetResponses() ([]models.Response, error)

	// Mock payment records.
	SavePaymentRequest(req models.PaymentRequest) error
	GetPaymentRequest(paymentID string) (*models.PaymentRequest, error)
	SavePaymentResult(res models.PaymentResult) error
	GetPaymentResult(paymentID string) (*models.PaymentResult, error)

	Close() error
}

// InMemoryStore is a mutex-guarded in-memory Store used by tests and by
// local runs without a database.
type InMemoryStore struct {
	mu         sync.Mutex
	flowStates map[string]models.FlowState
	receipts   []models.Receipt
	responses  []models.Response
	payReqs    map[string]models.PaymentRequest
	payResults map[string]models.PaymentResult
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		flowStates: make(map[string]models.FlowState),
		payReqs:    make(map[string]models.PaymentRequest),
		payResults: make(map[string]models.PaymentResult),
	}
}

func flowStateKey(userID, flowType string) string {
	return userID + "|" + flowType
}

// SaveFlowState stores or updates flow state for a user.
func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy the state data map so callers cannot mutate stored state.
	if state.StateData != nil {
		data := make(map[models.DataKey]string, len(state.StateData))
		for k, v := range state.StateData {
			data[k] = v
		}
		state.StateData = data
	}
	s.flowStates[flowStateKey(state.UserID, string(state.FlowType))] = state
	return nil
}

// GetFlowState retrieves flow state for a user, or nil when absent.
func (s *InMemoryStore) GetFlowState(userID, flowType string) (*models.FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.flowStates[flowStateKey(userID, flowType)]
	if !ok {
		return nil, nil
	}
	if state.StateData != nil {
		data := make(map[models.DataKey]string, len(state.StateData))
		for k, v := range state.StateData {
			data[k] = v
		}
		state.StateData = data
	}
	return &state, nil
}

// DeleteFlowState removes flow state for a user.
func (s *InMemoryStore) DeleteFlowState(userID, flowType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, flowStateKey(userID, flowType))
	return nil
}

// DeleteIdleFlowStates evicts sessions whose UpdatedAt precedes the cutoff.
func (s *InMemoryStore) DeleteIdleFlowStates(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int
	for key, state := range s.flowStates {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.flowStates, key)
			removed++
		}
	}
	return removed, nil
}

// AddReceipt records an outbound delivery receipt.
func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

// GetReceipts returns all recorded receipts ordered by time.
func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipts := make([]models.Receipt, len(s.receipts))
	copy(receipts, s.receipts)
	sort.SliceStable(receipts, func(i, j int) bool { return receipts[i].Time < receipts[j].Time })
	return receipts, nil
}

// AddResponse records an inbound user message.
func (s *InMemoryStore) AddResponse(r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

// GetResponses returns all recorded inbound messages ordered by time.
func (s *InMemoryStore) GetResponses() ([]models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	responses := make([]models.Response, len(s.responses))
	copy(responses, s.responses)
	sort.SliceStable(responses, func(i, j int) bool { return responses[i].Time < responses[j].Time })
	return responses, nil
}

// SavePaymentRequest stores a pending checkout.
func (s *InMemoryStore) SavePaymentRequest(req models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payReqs[req.PaymentID] = req
	return nil
}

// GetPaymentRequest retrieves a pending checkout, or nil when absent.
func (s *InMemoryStore) GetPaymentRequest(paymentID string) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.payReqs[paymentID]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// SavePaymentResult stores the outcome of a processed payment.
func (s *InMemoryStore) SavePaymentResult(res models.PaymentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payResults[res.PaymentID] = res
	return nil
}

// GetPaymentResult retrieves a processed payment outcome, or nil when absent.
func (s *InMemoryStore) GetPaymentResult(paymentID string) (*models.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.payResults[paymentID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
