package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/search"
)

// DefaultReplyTimeout is how long the coordinator waits for a friend's
// agent to answer one question.
const DefaultReplyTimeout = 30 * time.Second

// friendGiftLimit caps how many gift suggestions the handshake reply lists.
const friendGiftLimit = 3

// ErrReplyTimeout is returned when a friend's agent does not answer in time.
var ErrReplyTimeout = errors.New("timed out waiting for peer reply")

// ErrUnknownRequestID is returned for replies whose correlation ID matches
// no outstanding question.
var ErrUnknownRequestID = errors.New("no pending request for reply")

// Opts holds configuration for the peer coordinator.
type Opts struct {
	// ReplyTimeout bounds the wait for each answer.
	ReplyTimeout time.Duration
	// From identifies this agent in outbound peer messages.
	From string
}

// Option configures coordinator construction.
type Option func(*Opts)

// WithReplyTimeout sets the per-question reply timeout.
func WithReplyTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.ReplyTimeout = timeout }
}

// WithFrom sets the sender identity stamped on outbound peer messages.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// FriendProfile is the outcome of a completed handshake.
type FriendProfile struct {
	Friend      string
	Personality string
	Preferences string
	Gifts       []models.GiftItem
}

// Coordinator runs the friend handshake. Each in-flight question is a
// registry entry keyed by its correlation ID with a channel the reply is
// delivered on; the originating user travels with the request instead of
// living in shared state, so concurrent handshakes for different users
// never collide.
type Coordinator struct {
	directory *Directory
	sender    Sender
	searcher  search.Searcher

	timeout time.Duration
	from    string

	mu      sync.Mutex
	pending map[string]chan models.PeerReply
}

// NewCoordinator creates a peer coordinator.
func NewCoordinator(directory *Directory, sender Sender, searcher search.Searcher, opts ...Option) *Coordinator {
	cfg := Opts{
		ReplyTimeout: DefaultReplyTimeout,
		From:         "santai",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Coordinator{
		directory: directory,
		sender:    sender,
		searcher:  searcher,
		timeout:   cfg.ReplyTimeout,
		from:      cfg.From,
		pending:   make(map[string]chan models.PeerReply),
	}
}

// AskFriend runs the full handshake for one user: personality question,
// preferences question, then a gift search seeded with the answers. The
// profile is only returned when both questions were answered.
func (c *Coordinator) AskFriend(ctx context.Context, userID, friendName string) (*FriendProfile, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}

	address, err := c.directory.Lookup(friendName)
	if err != nil {
		return nil, err
	}

	slog.Info("Coordinator.AskFriend: starting handshake", "user_id", userID, "friend", friendName)

	personality, err := c.ask(ctx, address, models.PeerRequest{
		Type:     models.PeerTypePersonalityRequest,
		From:     c.from,
		Friend:   friendName,
		Question: fmt.Sprintf("Can you describe %s's personality?", title(friendName)),
	})
	if err != nil {
		return nil, fmt.Errorf("personality question to %s failed: %w", friendName, err)
	}

	preferences, err := c.ask(ctx, address, models.PeerRequest{
		Type:     models.PeerTypePreferencesRequest,
		From:     c.from,
		Friend:   friendName,
		Question: fmt.Sprintf("What type of materialistic gifts would %s enjoy? (2-3 categories)", title(friendName)),
	})
	if err != nil {
		return nil, fmt.Errorf("preferences question to %s failed: %w", friendName, err)
	}

	gifts, err := c.searchGiftsForFriend(ctx, friendName, preferences)
	if err != nil {
		slog.Warn("Coordinator.AskFriend: gift search failed, returning profile without gifts", "error", err, "friend", friendName)
		gifts = nil
	}

	slog.Info("Coordinator.AskFriend: handshake complete", "user_id", userID, "friend", friendName, "gifts", len(gifts))
	return &FriendProfile{
		Friend:      friendName,
		Personality: personality,
		Preferences: preferences,
		Gifts:       gifts,
	}, nil
}

// HandleReply routes an inbound peer reply to the question that carries its
// correlation ID. Replies for unknown or already-answered requests return
// ErrUnknownRequestID.
func (c *Coordinator) HandleReply(reply models.PeerReply) error {
	if err := reply.Validate(); err != nil {
		return fmt.Errorf("invalid peer reply: %w", err)
	}

	c.mu.Lock()
	ch, ok := c.pending[reply.RequestID]
	if ok {
		delete(c.pending, reply.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		slog.Warn("Coordinator.HandleReply: unmatched reply", "request_id", reply.RequestID, "type", reply.Type)
		return fmt.Errorf("%w: %s", ErrUnknownRequestID, reply.RequestID)
	}

	ch <- reply
	slog.Debug("Coordinator.HandleReply: reply delivered", "request_id", reply.RequestID, "friend", reply.Friend)
	return nil
}

// Names returns the friend names the coordinator can reach.
func (c *Coordinator) Names() []string {
	return c.directory.Names()
}

// PendingCount reports how many questions are awaiting replies.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// NotifyGiftSent tells a friend's agent that a gift was purchased for them
// and returns the agent's acknowledgment, when it sends one.
func (c *Coordinator) NotifyGiftSent(ctx context.Context, friendName string, gift models.GiftItem) (*models.GiftAcknowledgment, error) {
	address, err := c.directory.Lookup(friendName)
	if err != nil {
		return nil, err
	}

	note := models.GiftSentNotification{
		Type:            models.PeerTypeGiftSent,
		From:            c.from,
		Recipient:       friendName,
		GiftName:        gift.Name,
		GiftPrice:       gift.Price,
		GiftDescription: gift.Description,
		GiftURL:         gift.URL,
		Timestamp:       time.Now().Unix(),
	}
	ack, err := c.sender.SendNotification(ctx, address, note)
	if err != nil {
		return nil, fmt.Errorf("failed to notify %s's agent: %w", friendName, err)
	}

	if ack != nil {
		slog.Info("Coordinator.NotifyGiftSent: friend agent acknowledged", "friend", friendName, "gift", gift.Name, "message", ack.Message)
	} else {
		slog.Info("Coordinator.NotifyGiftSent: notification sent", "friend", friendName, "gift", gift.Name)
	}
	return ack, nil
}

// ask sends one question and blocks until the correlated reply arrives, the
// timeout fires, or the context is cancelled.
func (c *Coordinator) ask(ctx context.Context, address string, req models.PeerRequest) (string, error) {
	req.RequestID = uuid.New().String()
	req.Timestamp = time.Now().Unix()

	// Buffered so a reply arriving after timeout does not block HandleReply.
	ch := make(chan models.PeerReply, 1)
	c.mu.Lock()
	c.pending[req.RequestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.RequestID)
		c.mu.Unlock()
	}()

	if err := c.sender.SendRequest(ctx, address, req); err != nil {
		return "", err
	}

	slog.Debug("Coordinator.ask: question sent, awaiting reply", "request_id", req.RequestID, "type", req.Type, "friend", req.Friend)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply.Answer, nil
	case <-timer.C:
		slog.Warn("Coordinator.ask: reply timeout", "request_id", req.RequestID, "friend", req.Friend)
		return "", ErrReplyTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// searchGiftsForFriend runs a product search seeded with the friend's
// stated preferences.
func (c *Coordinator) searchGiftsForFriend(ctx context.Context, friendName, preferences string) ([]models.GiftItem, error) {
	prefs := models.UserPreferences{
		Occasion:    "just because",
		Recipient:   friendName,
		Preferences: preferences,
	}

	gifts, err := c.searcher.Search(ctx, prefs)
	if err != nil {
		return nil, err
	}
	if len(gifts) > friendGiftLimit {
		gifts = gifts[:friendGiftLimit]
	}
	return gifts, nil
}

// FormatProfile renders a handshake outcome as a chat message.
func FormatProfile(p *FriendProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎁 *Gift Recommendations for %s*\n\n", title(p.Friend))
	fmt.Fprintf(&b, "*Personality:* %s\n\n", p.Personality)
	fmt.Fprintf(&b, "*Gift Preferences:* %s\n\n", p.Preferences)
	b.WriteString("*Recommended Gifts:*\n")

	if len(p.Gifts) == 0 {
		b.WriteString("No gifts found. Please try again with different preferences.\n")
		return b.String()
	}

	for i, gift := range p.Gifts {
		fmt.Fprintf(&b, "%d. *%s* - %s\n", i+1, gift.Name, gift.Price)
		if gift.Description != "" {
			desc := gift.Description
			if len(desc) > 100 {
				desc = desc[:100] + "..."
			}
			fmt.Fprintf(&b, "   %s\n", desc)
		}
		if gift.URL != "" {
			fmt.Fprintf(&b, "   %s\n", gift.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// title uppercases the first letter of a name for display.
func title(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
