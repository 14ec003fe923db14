// Package messaging provides response handling functionality for stateful interactions.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// ResponseAction defines a hook function that processes a user's message.
// It receives the user's canonical identifier, message text, and timestamp.
// It should return true if the message was handled, false otherwise.
type ResponseAction func(ctx context.Context, from, responseText string, timestamp int64) (handled bool, err error)

// ResponseHandler manages stateful response processing by maintaining a map
// of recipient -> action hooks and routing incoming messages appropriately.
// When no per-recipient hook handles a message, the default action (normally
// the gift conversation flow) runs instead.
type ResponseHandler struct {
	// hooks maps canonicalized recipients to response action functions
	hooks map[string]ResponseAction
	// mu protects concurrent access to the hooks map and default fields
	mu sync.RWMutex
	// msgService is used to send fallback responses
	msgService Service
	// defaultAction handles messages no hook claimed
	defaultAction ResponseAction
	// defaultMessage is sent when neither a hook nor the default action handles a message
	defaultMessage string
}

// NewResponseHandler creates a new ResponseHandler with the given messaging service.
func NewResponseHandler(msgService Service) *ResponseHandler {
	return &ResponseHandler{
		hooks:          make(map[string]ResponseAction),
		msgService:     msgService,
		defaultMessage: "🎅 Ho ho ho! Tell me who you're shopping for and I'll find the perfect gift!",
	}
}

// SetDefaultAction sets the action run for messages no per-recipient hook handles.
func (rh *ResponseHandler) SetDefaultAction(action ResponseAction) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.defaultAction = action
	slog.Debug("ResponseHandler default action updated")
}

// RegisterHook registers a response action for a specific user.
func (rh *ResponseHandler) RegisterHook(recipient string, action ResponseAction) error {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		slog.Error("ResponseHandler RegisterHook validation failed", "error", err, "recipient", recipient)
		return fmt.Errorf("invalid recipient: %w", err)
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.hooks[canonicalRecipient] = action

	slog.Debug("ResponseHandler hook registered", "recipient", canonicalRecipient)
	return nil
}

// UnregisterHook removes a response action for a specific user.
func (rh *ResponseHandler) UnregisterHook(recipient string) error {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		slog.Error("ResponseHandler UnregisterHook validation failed", "error", err, "recipient", recipient)
		return fmt.Errorf("invalid recipient: %w", err)
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	delete(rh.hooks, canonicalRecipient)

	slog.Debug("ResponseHandler hook unregistered", "recipient", canonicalRecipient)
	return nil
}

// IsHookRegistered checks if a hook is registered for the given recipient.
func (rh *ResponseHandler) IsHookRegistered(recipient string) bool {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		return false
	}

	rh.mu.RLock()
	defer rh.mu.RUnlock()
	_, exists := rh.hooks[canonicalRecipient]
	return exists
}

// GetHookCount returns the number of currently registered hooks.
func (rh *ResponseHandler) GetHookCount() int {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return len(rh.hooks)
}

// ProcessResponse routes an incoming message: per-recipient hook first, then
// the default action, then the default message. One message's failure never
// escapes as a panic or affects other users' sessions.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	canonicalFrom, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}

	slog.Debug("ResponseHandler processing response", "from", canonicalFrom, "body_length", len(response.Body))

	rh.mu.RLock()
	action, hasHook := rh.hooks[canonicalFrom]
	defaultAction := rh.defaultAction
	defaultMessage := rh.defaultMessage
	rh.mu.RUnlock()

	if hasHook {
		handled, err := rh.runAction(ctx, action, canonicalFrom, response)
		if err != nil {
			return err
		}
		if handled {
			slog.Info("ResponseHandler response handled by hook", "from", canonicalFrom)
			return nil
		}
		slog.Debug("ResponseHandler hook did not handle response", "from", canonicalFrom)
	}

	if defaultAction != nil {
		handled, err := rh.runAction(ctx, defaultAction, canonicalFrom, response)
		if err != nil {
			return err
		}
		if handled {
			slog.Debug("ResponseHandler response handled by default action", "from", canonicalFrom)
			return nil
		}
	}

	slog.Debug("ResponseHandler sending default response", "from", canonicalFrom)
	if err := rh.msgService.SendMessage(ctx, canonicalFrom, defaultMessage); err != nil {
		slog.Error("ResponseHandler failed to send default response", "error", err, "from", canonicalFrom)
		return fmt.Errorf("failed to send default response: %w", err)
	}
	return nil
}

// runAction executes one action and converts its failure into an apologetic
// user-facing message.
func (rh *ResponseHandler) runAction(ctx context.Context, action ResponseAction, canonicalFrom string, response models.Response) (bool, error) {
	handled, err := action(ctx, canonicalFrom, response.Body, response.Time)
	if err != nil {
		slog.Error("ResponseHandler action execution failed", "error", err, "from", canonicalFrom)
		errorMsg := "🎁 Oops! Something went wrong on my end. Please try again!"
		if sendErr := rh.msgService.SendMessage(ctx, canonicalFrom, errorMsg); sendErr != nil {
			slog.Error("ResponseHandler failed to send error message", "error", sendErr, "from", canonicalFrom)
		}
		return false, fmt.Errorf("action execution failed: %w", err)
	}
	return handled, nil
}

// SetDefaultMessage sets the message sent when nothing handles a response.
func (rh *ResponseHandler) SetDefaultMessage(message string) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.defaultMessage = message
}

// GetDefaultMessage returns the current default message.
func (rh *ResponseHandler) GetDefaultMessage() string {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return rh.defaultMessage
}

// Start begins processing responses from the messaging service.
// This should be called once to start the response processing loop.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing")

	go func() {
		defer slog.Info("ResponseHandler stopped response processing")

		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}

				// Each inbound message runs in its own goroutine so a slow
				// session (e.g. one waiting on a peer handshake) cannot
				// stall other users.
				go func(resp models.Response) {
					if err := rh.ProcessResponse(ctx, resp); err != nil {
						slog.Error("ResponseHandler failed to process response", "error", err, "from", resp.From)
					}
				}(response)

			case <-ctx.Done():
				slog.Debug("ResponseHandler stopping due to context cancellation")
				return
			}
		}
	}()
}
