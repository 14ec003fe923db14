// Package models defines flow-related types for SantAI conversation management.
package models

// FlowType represents the type of conversation flow.
type FlowType string

// StateType represents a state within a conversation flow.
type StateType string

// DataKey represents a key used to store state data within a flow.
type DataKey string

// Flow type constants
const (
	// FlowTypeGiftConversation is the gift-recommendation dialogue flow.
	FlowTypeGiftConversation FlowType = "gift_conversation"
)

// Conversation state constants
const (
	// StateInitial is the state of a session before any slots are filled.
	StateInitial StateType = "INITIAL"
	// StateCollectingPreferences gathers the still-missing gift slots.
	StateCollectingPreferences StateType = "COLLECTING_PREFERENCES"
	// StateSelectingCategory offers gift categories for the user to pick from.
	StateSelectingCategory StateType = "SELECTING_CATEGORY"
	// StateShowingRecommendations presents up to five ranked gifts.
	StateShowingRecommendations StateType = "SHOWING_RECOMMENDATIONS"
	// StateSelectingGift resolves the user's pick against the displayed list.
	StateSelectingGift StateType = "SELECTING_GIFT"
	// StatePayment means a checkout link has been issued for the chosen gift.
	StatePayment StateType = "PAYMENT"
	// StateCompleted means the mock payment went through.
	StateCompleted StateType = "COMPLETED"
)

// Data key constants for state data storage
const (
	// DataKeyPreferences holds the serialized slot set.
	DataKeyPreferences DataKey = "preferences"
	// DataKeyCategories holds the ordered category list offered so far.
	DataKeyCategories DataKey = "availableCategories"
	// DataKeyRecommendations holds the currently displayed recommendations.
	DataKeyRecommendations DataKey = "currentRecommendations"
	// DataKeyAllGifts holds the accumulated deduplicated gift set.
	DataKeyAllGifts DataKey = "allGifts"
	// DataKeySelectedGift holds the gift chosen for checkout.
	DataKeySelectedGift DataKey = "selectedGift"
	// DataKeyConversationHistory holds the serialized transcript.
	DataKeyConversationHistory DataKey = "conversationHistory"
	// DataKeyPaymentID holds the outstanding payment request id.
	DataKeyPaymentID DataKey = "paymentID"
	// DataKeyPaginationOffset holds the cursor into the accumulated gift set.
	DataKeyPaginationOffset DataKey = "paginationOffset"
	// DataKeyUpdateMode marks that the next extraction may overwrite slots.
	DataKeyUpdateMode DataKey = "updateMode"
)

// GetGiftConversationStates returns all valid states for the gift conversation flow.
func GetGiftConversationStates() []StateType {
	return []StateType{
		StateInitial,
		StateCollectingPreferences,
		StateSelectingCategory,
		StateShowingRecommendations,
		StateSelectingGift,
		StatePayment,
		StateCompleted,
	}
}

// IsValidGiftConversationState checks if a state is valid for the gift conversation flow.
func IsValidGiftConversationState(state StateType) bool {
	for _, s := range GetGiftConversationStates() {
		if s == state {
			return true
		}
	}
	return false
}
