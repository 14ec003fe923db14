// Package payment implements the simulated checkout used for gift
// purchases. Payment requests and results persist through the store so a
// restart does not orphan an in-flight checkout.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/store"
	"github.com/ParthPatel00/SantAI/internal/util"
)

// DefaultBaseURL is where the checkout pages are served when no public URL
// is configured.
const DefaultBaseURL = "http://localhost:8001"

// priceValueRegex extracts the numeric portion of a display price like
// "$129.99" or "1,299".
var priceValueRegex = regexp.MustCompile(`[\d]+\.?\d*`)

// Opts holds configuration for the payment service.
type Opts struct {
	// BaseURL is the externally reachable root for checkout links.
	BaseURL string
}

// Option configures payment service construction.
type Option func(*Opts)

// WithBaseURL sets the checkout link base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) { o.BaseURL = baseURL }
}

// Service creates payment links and processes simulated payments.
type Service struct {
	store   store.Store
	baseURL string
}

// NewService creates a payment service backed by the given store.
func NewService(st store.Store, opts ...Option) *Service {
	cfg := Opts{BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{
		store:   st,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// CreatePaymentLink records a payment request for the selected gift and
// returns the checkout URL for the user to open.
func (s *Service) CreatePaymentLink(ctx context.Context, gift models.GiftItem, userID string) (string, error) {
	if userID == "" {
		return "", models.ErrEmptyUserID
	}
	if err := gift.Validate(); err != nil {
		return "", fmt.Errorf("invalid gift for payment: %w", err)
	}

	req := models.PaymentRequest{
		PaymentID:   uuid.New().String(),
		GiftID:      gift.ID,
		GiftName:    gift.Name,
		Price:       gift.Price,
		Description: gift.Description,
		UserID:      userID,
		CreatedAt:   time.Now(),
	}

	if err := s.store.SavePaymentRequest(req); err != nil {
		slog.Error("PaymentService.CreatePaymentLink: failed to save request", "error", err, "user_id", userID)
		return "", fmt.Errorf("failed to save payment request: %w", err)
	}

	url := fmt.Sprintf("%s/payment/%s", s.baseURL, req.PaymentID)
	slog.Info("PaymentService.CreatePaymentLink: payment link created", "payment_id", req.PaymentID, "gift_id", gift.ID, "user_id", userID)
	return url, nil
}

// GetPaymentRequest looks up a payment request by ID. Returns
// models.ErrPaymentNotFound when no request with that ID exists.
func (s *Service) GetPaymentRequest(ctx context.Context, paymentID string) (*models.PaymentRequest, error) {
	req, err := s.store.GetPaymentRequest(paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment request: %w", err)
	}
	if req == nil {
		return nil, models.ErrPaymentNotFound
	}
	return req, nil
}

// ProcessPayment completes a simulated payment, persisting and returning
// the result. Processing an unknown payment ID returns a failed result
// rather than an error so checkout pages can render it.
func (s *Service) ProcessPayment(ctx context.Context, paymentID string) (*models.PaymentResult, error) {
	req, err := s.store.GetPaymentRequest(paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment request: %w", err)
	}
	if req == nil {
		slog.Warn("PaymentService.ProcessPayment: payment request not found", "payment_id", paymentID)
		return &models.PaymentResult{
			Success:   false,
			PaymentID: paymentID,
			Error:     "Payment request not found",
		}, nil
	}

	result := models.PaymentResult{
		Success:       true,
		PaymentID:     paymentID,
		TransactionID: util.GenerateTransactionID(),
		Amount:        req.Price,
		Status:        "completed",
		Timestamp:     time.Now().Format(time.RFC3339),
		GiftName:      req.GiftName,
	}

	if err := s.store.SavePaymentResult(result); err != nil {
		slog.Error("PaymentService.ProcessPayment: failed to save result", "error", err, "payment_id", paymentID)
		return nil, fmt.Errorf("failed to save payment result: %w", err)
	}

	slog.Info("PaymentService.ProcessPayment: payment completed", "payment_id", paymentID, "transaction_id", result.TransactionID, "amount", result.Amount)
	return &result, nil
}

// GetPaymentResult looks up a processed payment result by payment ID.
// Returns nil when the payment has not been processed yet.
func (s *Service) GetPaymentResult(ctx context.Context, paymentID string) (*models.PaymentResult, error) {
	result, err := s.store.GetPaymentResult(paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment result: %w", err)
	}
	return result, nil
}

// ExtractPriceValue pulls the numeric value out of a display price string.
// Unparseable prices yield 0.
func ExtractPriceValue(price string) float64 {
	cleaned := strings.ReplaceAll(price, ",", "")
	match := priceValueRegex.FindString(cleaned)
	if match == "" {
		return 0
	}
	var value float64
	if _, err := fmt.Sscanf(match, "%f", &value); err != nil {
		return 0
	}
	return value
}
