package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// historyLimit bounds the stored transcript per session.
const historyLimit = 50

// ConversationMessage is one transcript entry.
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// loadPreferences reads the slot set for a session; a fresh session yields
// the zero value.
func (f *GiftFlow) loadPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	var prefs models.UserPreferences
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPreferences)
	if err != nil {
		return prefs, fmt.Errorf("failed to load preferences: %w", err)
	}
	if raw == "" {
		return prefs, nil
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return models.UserPreferences{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs, nil
}

func (f *GiftFlow) savePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPreferences, string(raw))
}

func (f *GiftFlow) loadCategories(ctx context.Context, userID string) ([]string, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var categories []string
	if err := json.Unmarshal([]byte(raw), &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (f *GiftFlow) saveCategories(ctx context.Context, userID string, categories []string) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyCategories, string(raw))
}

func (f *GiftFlow) loadRecommendations(ctx context.Context, userID string) ([]models.GiftRecommendation, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyRecommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var recs []models.GiftRecommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	return recs, nil
}

func (f *GiftFlow) saveRecommendations(ctx context.Context, userID string, recs []models.GiftRecommendation) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyRecommendations, string(raw))
}

func (f *GiftFlow) loadAllGifts(ctx context.Context, userID string) ([]models.GiftItem, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyAllGifts)
	if err != nil {
		return nil, fmt.Errorf("failed to load gift set: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var gifts []models.GiftItem
	if err := json.Unmarshal([]byte(raw), &gifts); err != nil {
		return nil, fmt.Errorf("failed to decode gift set: %w", err)
	}
	return gifts, nil
}

// saveAllGifts replaces the session's pageable gift set with the results of
// the latest search.
func (f *GiftFlow) saveAllGifts(ctx context.Context, userID string, gifts []models.GiftItem) error {
	raw, err := json.Marshal(gifts)
	if err != nil {
		return fmt.Errorf("failed to encode gift set: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyAllGifts, string(raw))
}

func (f *GiftFlow) loadSelectedGift(ctx context.Context, userID string) (*models.GiftItem, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeySelectedGift)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected gift: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var gift models.GiftItem
	if err := json.Unmarshal([]byte(raw), &gift); err != nil {
		return nil, fmt.Errorf("failed to decode selected gift: %w", err)
	}
	return &gift, nil
}

func (f *GiftFlow) saveSelectedGift(ctx context.Context, userID string, gift models.GiftItem) error {
	raw, err := json.Marshal(gift)
	if err != nil {
		return fmt.Errorf("failed to encode selected gift: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeySelectedGift, string(raw))
}

func (f *GiftFlow) loadPaginationOffset(ctx context.Context, userID string) (int, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPaginationOffset)
	if err != nil {
		return 0, fmt.Errorf("failed to load pagination offset: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to decode pagination offset: %w", err)
	}
	return offset, nil
}

func (f *GiftFlow) savePaginationOffset(ctx context.Context, userID string, offset int) error {
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPaginationOffset, strconv.Itoa(offset))
}

func (f *GiftFlow) isUpdateMode(ctx context.Context, userID string) bool {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyUpdateMode)
	if err != nil {
		slog.Warn("GiftFlow: failed to read update mode", "error", err, "user_id", userID)
		return false
	}
	return raw == "1"
}

func (f *GiftFlow) setUpdateMode(ctx context.Context, userID string, on bool) error {
	value := ""
	if on {
		value = "1"
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyUpdateMode, value)
}

// appendHistory records transcript entries, trimming to the newest
// historyLimit messages. History failures are logged but never fail a turn.
func (f *GiftFlow) appendHistory(ctx context.Context, userID string, entries ...ConversationMessage) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyConversationHistory)
	if err != nil {
		slog.Warn("GiftFlow: failed to load history", "error", err, "user_id", userID)
		return
	}

	var history []ConversationMessage
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			slog.Warn("GiftFlow: resetting corrupt history", "error", err, "user_id", userID)
			history = nil
		}
	}

	history = append(history, entries...)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	encoded, err := json.Marshal(history)
	if err != nil {
		slog.Warn("GiftFlow: failed to encode history", "error", err, "user_id", userID)
		return
	}
	if err := f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyConversationHistory, string(encoded)); err != nil {
		slog.Warn("GiftFlow: failed to save history", "error", err, "user_id", userID)
	}
}

// History returns the stored transcript for a session.
func (f *GiftFlow) History(ctx context.Context, userID string) ([]ConversationMessage, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyConversationHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var history []ConversationMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return history, nil
}

func userMessage(text string) ConversationMessage {
	return ConversationMessage{Role: "user", Content: text, Timestamp: time.Now().Unix()}
}

func assistantMessage(text string) ConversationMessage {
	return ConversationMessage{Role: "assistant", Content: text, Timestamp: time.Now().Unix()}
}
