package peer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/search"
)

// scriptedSender answers questions by type, simulating a friend's agent
// replying asynchronously through HandleReply.
type scriptedSender struct {
	mu       sync.Mutex
	requests []models.PeerRequest
	notes    []models.GiftSentNotification
	answers  map[models.PeerMessageType]string
	coord    *Coordinator
	sendErr  error
	silent   bool
}

func (s *scriptedSender) SendRequest(ctx context.Context, address string, req models.PeerRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.sendErr != nil {
		return s.sendErr
	}
	if s.silent {
		return nil
	}

	replyType := models.PeerTypePersonalityResponse
	if req.Type == models.PeerTypePreferencesRequest {
		replyType = models.PeerTypePreferencesResponse
	}

	go s.coord.HandleReply(models.PeerReply{
		Type:      replyType,
		RequestID: req.RequestID,
		Friend:    req.Friend,
		Answer:    s.answers[req.Type],
		Timestamp: time.Now().Unix(),
	})
	return nil
}

func (s *scriptedSender) SendNotification(ctx context.Context, address string, note models.GiftSentNotification) (*models.GiftAcknowledgment, error) {
	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()

	if s.silent {
		return nil, nil
	}
	return &models.GiftAcknowledgment{
		Type:      models.PeerTypeGiftAck,
		Recipient: note.Recipient,
		GiftName:  note.GiftName,
		Message:   "Thank you for the gift!",
		Timestamp: time.Now().Unix(),
	}, nil
}

func newTestCoordinator(sender *scriptedSender, opts ...Option) *Coordinator {
	dir := NewDirectory(map[string]string{
		"devam": "http://devam.example.com/peer",
		"parth": "http://parth.example.com/peer",
	})
	coord := NewCoordinator(dir, sender, search.NewCatalogClient(), opts...)
	sender.coord = coord
	return coord
}

func TestDirectoryLookup(t *testing.T) {
	dir := NewDirectory(map[string]string{"Devam": "http://devam.example.com"})

	addr, err := dir.Lookup("devam")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if addr != "http://devam.example.com" {
		t.Errorf("Lookup() = %q", addr)
	}

	// Case insensitive.
	if _, err := dir.Lookup("DEVAM"); err != nil {
		t.Errorf("Lookup(DEVAM) error = %v", err)
	}

	_, err = dir.Lookup("stranger")
	if !errors.Is(err, models.ErrUnknownFriend) {
		t.Errorf("Lookup(stranger) error = %v, want ErrUnknownFriend", err)
	}
	if !strings.Contains(err.Error(), "devam") {
		t.Errorf("unknown friend error should list known names, got %q", err.Error())
	}
}

func TestAskFriendCompletesHandshake(t *testing.T) {
	sender := &scriptedSender{answers: map[models.PeerMessageType]string{
		models.PeerTypePersonalityRequest: "Outgoing and loves the outdoors",
		models.PeerTypePreferencesRequest: "Electronics, Sports Equipment",
	}}
	coord := newTestCoordinator(sender)

	profile, err := coord.AskFriend(context.Background(), "user-1", "devam")
	if err != nil {
		t.Fatalf("AskFriend() error = %v", err)
	}

	if profile.Personality != "Outgoing and loves the outdoors" {
		t.Errorf("Personality = %q", profile.Personality)
	}
	if profile.Preferences != "Electronics, Sports Equipment" {
		t.Errorf("Preferences = %q", profile.Preferences)
	}
	if len(profile.Gifts) == 0 || len(profile.Gifts) > 3 {
		t.Errorf("len(Gifts) = %d, want 1..3", len(profile.Gifts))
	}

	// Both questions went out, each with its own correlation ID.
	if len(sender.requests) != 2 {
		t.Fatalf("len(requests) = %d, want 2", len(sender.requests))
	}
	if sender.requests[0].Type != models.PeerTypePersonalityRequest {
		t.Errorf("first question type = %q", sender.requests[0].Type)
	}
	if sender.requests[1].Type != models.PeerTypePreferencesRequest {
		t.Errorf("second question type = %q", sender.requests[1].Type)
	}
	if sender.requests[0].RequestID == sender.requests[1].RequestID {
		t.Error("questions share a correlation ID")
	}

	if coord.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after handshake, want 0", coord.PendingCount())
	}
}

func TestAskFriendUnknownFriend(t *testing.T) {
	coord := newTestCoordinator(&scriptedSender{})

	_, err := coord.AskFriend(context.Background(), "user-1", "stranger")
	if !errors.Is(err, models.ErrUnknownFriend) {
		t.Errorf("AskFriend(stranger) error = %v, want ErrUnknownFriend", err)
	}
}

func TestAskFriendTimeout(t *testing.T) {
	sender := &scriptedSender{silent: true}
	coord := newTestCoordinator(sender, WithReplyTimeout(50*time.Millisecond))

	_, err := coord.AskFriend(context.Background(), "user-1", "devam")
	if !errors.Is(err, ErrReplyTimeout) {
		t.Errorf("AskFriend() error = %v, want ErrReplyTimeout", err)
	}
	if coord.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after timeout, want 0", coord.PendingCount())
	}
}

func TestAskFriendSendFailure(t *testing.T) {
	sender := &scriptedSender{sendErr: errors.New("network down")}
	coord := newTestCoordinator(sender)

	if _, err := coord.AskFriend(context.Background(), "user-1", "devam"); err == nil {
		t.Fatal("expected error when send fails")
	}
	if coord.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after send failure, want 0", coord.PendingCount())
	}
}

func TestHandleReplyUnknownRequestID(t *testing.T) {
	coord := newTestCoordinator(&scriptedSender{})

	err := coord.HandleReply(models.PeerReply{
		Type:      models.PeerTypePersonalityResponse,
		RequestID: "never-issued",
		Friend:    "devam",
		Answer:    "late answer",
	})
	if !errors.Is(err, ErrUnknownRequestID) {
		t.Errorf("HandleReply() error = %v, want ErrUnknownRequestID", err)
	}
}

func TestHandleReplyInvalid(t *testing.T) {
	coord := newTestCoordinator(&scriptedSender{})

	if err := coord.HandleReply(models.PeerReply{Type: "bogus", RequestID: "x"}); err == nil {
		t.Error("expected error for invalid reply type")
	}
	if err := coord.HandleReply(models.PeerReply{Type: models.PeerTypePersonalityResponse}); err == nil {
		t.Error("expected error for missing request ID")
	}
}

func TestNotifyGiftSent(t *testing.T) {
	sender := &scriptedSender{}
	coord := newTestCoordinator(sender)

	gift := models.GiftItem{ID: "gift_1", Name: "Trail Backpack", Price: "$129.99", URL: "https://example.com/gift1"}
	ack, err := coord.NotifyGiftSent(context.Background(), "parth", gift)
	if err != nil {
		t.Fatalf("NotifyGiftSent() error = %v", err)
	}

	if len(sender.notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(sender.notes))
	}
	note := sender.notes[0]
	if note.Type != models.PeerTypeGiftSent || note.Recipient != "parth" || note.GiftName != "Trail Backpack" {
		t.Errorf("notification = %+v", note)
	}

	if ack == nil {
		t.Fatal("expected an acknowledgment from the friend agent")
	}
	if ack.Type != models.PeerTypeGiftAck || ack.GiftName != "Trail Backpack" || ack.Message == "" {
		t.Errorf("acknowledgment = %+v", ack)
	}
}

func TestNotifyGiftSentWithoutAck(t *testing.T) {
	sender := &scriptedSender{silent: true}
	coord := newTestCoordinator(sender)

	ack, err := coord.NotifyGiftSent(context.Background(), "parth", models.GiftItem{ID: "gift_2", Name: "Mug"})
	if err != nil {
		t.Fatalf("NotifyGiftSent() error = %v", err)
	}
	if ack != nil {
		t.Errorf("ack = %+v, want nil when the agent sends none", ack)
	}
}

func TestFormatProfile(t *testing.T) {
	profile := &FriendProfile{
		Friend:      "devam",
		Personality: "Warm and curious",
		Preferences: "Books, Art",
		Gifts: []models.GiftItem{
			{ID: "g1", Name: "Sketchbook Set", Price: "$25", Description: "Hardcover sketchbooks", URL: "https://example.com/g1"},
		},
	}

	got := FormatProfile(profile)
	for _, want := range []string{"Devam", "Warm and curious", "Books, Art", "Sketchbook Set", "$25"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatProfile() missing %q in:\n%s", want, got)
		}
	}

	empty := FormatProfile(&FriendProfile{Friend: "parth", Personality: "p", Preferences: "q"})
	if !strings.Contains(empty, "No gifts found") {
		t.Errorf("FormatProfile() without gifts should mention no gifts, got:\n%s", empty)
	}
}
