// Package models defines the peer-agent wire protocol for SantAI.
package models

// PeerMessageType tags every peer message so replies are classified by an
// explicit type instead of content heuristics.
type PeerMessageType string

const (
	// PeerTypePersonalityRequest asks a friend's agent to describe the friend.
	PeerTypePersonalityRequest PeerMessageType = "peer_personality_request"
	// PeerTypePersonalityResponse carries the personality answer.
	PeerTypePersonalityResponse PeerMessageType = "peer_personality_response"
	// PeerTypePreferencesRequest asks for the friend's gift preferences.
	PeerTypePreferencesRequest PeerMessageType = "peer_preferences_request"
	// PeerTypePreferencesResponse carries the gift-preferences answer.
	PeerTypePreferencesResponse PeerMessageType = "peer_preferences_response"
	// PeerTypeGiftSent notifies a friend's agent that a gift was purchased.
	PeerTypeGiftSent PeerMessageType = "gift_sent_notification"
	// PeerTypeGiftAck acknowledges a gift notification.
	PeerTypeGiftAck PeerMessageType = "gift_acknowledgment"
)

// IsValidPeerMessageType checks if the given peer message type is supported.
func IsValidPeerMessageType(t PeerMessageType) bool {
	switch t {
	case PeerTypePersonalityRequest, PeerTypePersonalityResponse,
		PeerTypePreferencesRequest, PeerTypePreferencesResponse,
		PeerTypeGiftSent, PeerTypeGiftAck:
		return true
	default:
		return false
	}
}

// PeerRequest is an outbound question to a friend's agent. RequestID is a
// fresh UUID per question; the reply must echo it.
type PeerRequest struct {
	Type      PeerMessageType `json:"type"`
	RequestID string          `json:"request_id"`
	From      string          `json:"from"`
	Friend    string          `json:"friend"`
	Question  string          `json:"question"`
	Timestamp int64           `json:"timestamp"`
}

// Validate checks the fields the correlation registry depends on.
func (r *PeerRequest) Validate() error {
	if !IsValidPeerMessageType(r.Type) {
		return ErrInvalidPeerType
	}
	if r.RequestID == "" {
		return ErrEmptyRequestID
	}
	if r.Friend == "" {
		return ErrUnknownFriend
	}
	return nil
}

// PeerReply is an inbound answer from a friend's agent. Replies are matched
// to outstanding requests solely by RequestID.
type PeerReply struct {
	Type      PeerMessageType `json:"type"`
	RequestID string          `json:"request_id"`
	Friend    string          `json:"friend"`
	Answer    string          `json:"answer"`
	Timestamp int64           `json:"timestamp"`
}

// Validate checks the fields the correlation registry depends on.
func (r *PeerReply) Validate() error {
	if !IsValidPeerMessageType(r.Type) {
		return ErrInvalidPeerType
	}
	if r.RequestID == "" {
		return ErrEmptyRequestID
	}
	return nil
}

// GiftSentNotification tells a friend's agent a gift is on its way.
type GiftSentNotification struct {
	Type            PeerMessageType `json:"type"`
	From            string          `json:"from"`
	Recipient       string          `json:"recipient"`
	GiftName        string          `json:"gift_name"`
	GiftPrice       string          `json:"gift_price"`
	GiftDescription string          `json:"gift_description,omitempty"`
	GiftURL         string          `json:"gift_url,omitempty"`
	Timestamp       int64           `json:"timestamp"`
}

// GiftAcknowledgment is the friend agent's thank-you for a gift notification.
type GiftAcknowledgment struct {
	Type      PeerMessageType `json:"type"`
	Recipient string          `json:"recipient"`
	GiftName  string          `json:"gift_name"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
