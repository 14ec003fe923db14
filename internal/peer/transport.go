package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// Sender delivers typed peer protocol messages to a friend's agent.
type Sender interface {
	// SendRequest delivers a question to the agent at the given address.
	SendRequest(ctx context.Context, address string, req models.PeerRequest) error

	// SendNotification delivers a gift-sent notification and returns the
	// friend agent's acknowledgment, when it sends one.
	SendNotification(ctx context.Context, address string, note models.GiftSentNotification) (*models.GiftAcknowledgment, error)
}

// DefaultSendTimeout bounds a single peer message delivery.
const DefaultSendTimeout = 10 * time.Second

// HTTPSender posts peer protocol messages as JSON to agent HTTP endpoints.
// The directory addresses are expected to be full URLs.
type HTTPSender struct {
	httpClient *http.Client
}

// NewHTTPSender creates an HTTP-based peer message sender.
func NewHTTPSender() *HTTPSender {
	return &HTTPSender{httpClient: &http.Client{Timeout: DefaultSendTimeout}}
}

// NewHTTPSenderWithClient creates a sender with a custom HTTP client,
// used by tests.
func NewHTTPSenderWithClient(client *http.Client) *HTTPSender {
	return &HTTPSender{httpClient: client}
}

// SendRequest posts a peer question to the agent endpoint.
func (s *HTTPSender) SendRequest(ctx context.Context, address string, req models.PeerRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid peer request: %w", err)
	}
	_, err := s.post(ctx, address, req)
	return err
}

// SendNotification posts a gift-sent notification to the agent endpoint.
// A friend agent may answer with a gift_acknowledgment in the response
// body; anything else is treated as delivered-without-ack.
func (s *HTTPSender) SendNotification(ctx context.Context, address string, note models.GiftSentNotification) (*models.GiftAcknowledgment, error) {
	body, err := s.post(ctx, address, note)
	if err != nil {
		return nil, err
	}

	var ack models.GiftAcknowledgment
	if err := json.Unmarshal(body, &ack); err != nil || ack.Type != models.PeerTypeGiftAck {
		return nil, nil
	}
	return &ack, nil
}

func (s *HTTPSender) post(ctx context.Context, address string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal peer message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create peer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("HTTPSender.post: delivery failed", "error", err, "address", address)
		return nil, fmt.Errorf("failed to deliver peer message to %s: %w", address, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("peer agent at %s returned status %d", address, resp.StatusCode)
	}

	slog.Debug("HTTPSender.post: peer message delivered", "address", address, "status", resp.StatusCode)
	return respBody, nil
}
