// Package messaging provides an in-process transport backed by channels.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// InProcessService is a channel-backed Service implementation. The HTTP chat
// inbox feeds its Responses channel; outbound sends are retained per
// recipient so callers (and tests) can read delivered replies back.
type InProcessService struct {
	receipts  chan models.Receipt
	responses chan models.Response
	outbox    map[string][]string
	mu        sync.RWMutex
	stopped   bool
}

// NewInProcessService creates a channel-backed messaging service.
func NewInProcessService() *InProcessService {
	return &InProcessService{
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
		outbox:    make(map[string][]string),
	}
}

// ValidateAndCanonicalizeRecipient accepts any non-empty identifier and
// lowercases it. In-process recipients are opaque session keys, not phone
// numbers.
func (s *InProcessService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := strings.ToLower(strings.TrimSpace(recipient))
	if canonical == "" {
		return "", models.ErrEmptyRecipient
	}
	return canonical, nil
}

// SendMessage records the outbound message and emits a sent receipt.
func (s *InProcessService) SendMessage(ctx context.Context, to string, body string) error {
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrServiceStopped
	}
	s.outbox[canonicalTo] = append(s.outbox[canonicalTo], body)
	s.mu.Unlock()

	slog.Debug("InProcessService.SendMessage: message recorded", "to", canonicalTo, "body_length", len(body))
	s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// EmitResponse injects an inbound message, as if the user had sent it.
func (s *InProcessService) EmitResponse(response models.Response) error {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrServiceStopped
	}

	select {
	case s.responses <- response:
		slog.Debug("InProcessService.EmitResponse: inbound message emitted", "from", response.From)
		return nil
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("InProcessService.EmitResponse: responses channel blocked, dropping message", "from", response.From)
		return fmt.Errorf("responses channel blocked for %s", response.From)
	}
}

// SentMessages returns the messages delivered to a recipient so far.
func (s *InProcessService) SentMessages(to string) []string {
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]string, len(s.outbox[canonicalTo]))
	copy(msgs, s.outbox[canonicalTo])
	return msgs
}

// Start is a no-op; the service is driven by EmitResponse.
func (s *InProcessService) Start(ctx context.Context) error {
	return nil
}

// Stop closes channels and stops the service.
func (s *InProcessService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.responses)
	}()

	return nil
}

// Receipts returns the channel for sent message receipts.
func (s *InProcessService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Responses returns the channel for incoming messages.
func (s *InProcessService) Responses() <-chan models.Response {
	return s.responses
}

func (s *InProcessService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
	}
}
