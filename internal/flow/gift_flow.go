package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/genai"
	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/payment"
	"github.com/ParthPatel00/SantAI/internal/peer"
	"github.com/ParthPatel00/SantAI/internal/search"
)

// Opts holds configuration for the gift conversation flow.
type Opts struct {
	// RequiredSlots is the completeness predicate: the slot set that must
	// be filled before the flow moves past preference collection.
	RequiredSlots []models.SlotName
}

// Option configures gift flow construction.
type Option func(*Opts)

// WithRequiredSlots overrides the slots the completeness predicate checks.
func WithRequiredSlots(slots []models.SlotName) Option {
	return func(o *Opts) { o.RequiredSlots = slots }
}

// GiftFlow is the gift conversation state machine. One instance serves all
// users; per-user session state lives behind the StateManager.
type GiftFlow struct {
	stateManager  StateManager
	extractor     *Extractor
	engine        *Engine
	selector      *Selector
	searcher      search.Searcher
	payments      *payment.Service
	peers         *peer.Coordinator
	requiredSlots []models.SlotName
}

// NewGiftFlow creates the gift conversation flow. The peer coordinator may
// be nil when no friend agents are configured.
func NewGiftFlow(
	stateManager StateManager,
	genaiClient genai.ClientInterface,
	searcher search.Searcher,
	payments *payment.Service,
	peers *peer.Coordinator,
	opts ...Option,
) *GiftFlow {
	cfg := Opts{RequiredSlots: models.DefaultRequiredSlots()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GiftFlow{
		stateManager:  stateManager,
		extractor:     NewExtractor(genaiClient, cfg.RequiredSlots),
		engine:        NewEngine(genaiClient),
		selector:      NewSelector(genaiClient),
		searcher:      searcher,
		payments:      payments,
		peers:         peers,
		requiredSlots: cfg.RequiredSlots,
	}
}

// ProcessResponse handles one inbound message and returns the reply text.
// Errors are internal only; user-visible failures come back as apologetic
// reply text so one bad turn never kills a session.
func (f *GiftFlow) ProcessResponse(ctx context.Context, userID, userText string) (string, error) {
	if userID == "" {
		return "", models.ErrEmptyUserID
	}
	if strings.TrimSpace(userText) == "" {
		return "", models.ErrEmptyMessageBody
	}

	f.appendHistory(ctx, userID, userMessage(userText))

	reply, err := f.dispatch(ctx, userID, userText)
	if err != nil {
		slog.Error("GiftFlow.ProcessResponse: turn failed", "error", err, "user_id", userID)
		reply = "🎁 Oops! Something went wrong on my end. Please try again!"
	}

	f.appendHistory(ctx, userID, assistantMessage(reply))
	return reply, nil
}

func (f *GiftFlow) dispatch(ctx context.Context, userID, userText string) (string, error) {
	// Friend-directed requests bypass the slot machine entirely: the
	// handshake runs with this user's identity so concurrent sessions
	// cannot cross wires.
	if reply, handled := f.tryFriendRequest(ctx, userID, userText); handled {
		return reply, nil
	}

	state, err := f.stateManager.GetCurrentState(ctx, userID, models.FlowTypeGiftConversation)
	if err != nil {
		return "", fmt.Errorf("failed to load session state: %w", err)
	}
	if state == "" {
		state = models.StateInitial
		if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, state); err != nil {
			return "", fmt.Errorf("failed to create session: %w", err)
		}
		slog.Info("GiftFlow: new session", "user_id", userID)
	}

	slog.Debug("GiftFlow.dispatch", "user_id", userID, "state", state)

	switch state {
	case models.StateInitial:
		return f.handleCollecting(ctx, userID, userText)
	case models.StateCollectingPreferences:
		return f.handleCollecting(ctx, userID, userText)
	case models.StateSelectingCategory:
		return f.handleCategorySelection(ctx, userID, userText)
	case models.StateShowingRecommendations, models.StateSelectingGift:
		return f.handleRecommendationSelection(ctx, userID, userText)
	case models.StatePayment:
		return f.handlePayment(ctx, userID, userText)
	case models.StateCompleted:
		return f.handleCompleted(ctx, userID, userText)
	default:
		slog.Warn("GiftFlow: unknown state, resetting session", "user_id", userID, "state", state)
		if err := f.stateManager.ResetState(ctx, userID, models.FlowTypeGiftConversation); err != nil {
			return "", err
		}
		return "I'm not sure how to help with that. Let's start over - who are you shopping for?", nil
	}
}

// tryFriendRequest routes messages that name a known friend to the peer
// handshake. Returns handled=false when no friend is mentioned or no peer
// coordinator is configured.
func (f *GiftFlow) tryFriendRequest(ctx context.Context, userID, userText string) (string, bool) {
	if f.peers == nil {
		return "", false
	}

	lower := strings.ToLower(userText)
	if !strings.Contains(lower, "gift for @") && !strings.Contains(lower, "send a gift to") && !strings.Contains(lower, "ask ") {
		return "", false
	}

	var friend string
	for _, name := range f.peers.Names() {
		if strings.Contains(lower, name) {
			friend = name
			break
		}
	}
	if friend == "" {
		return "", false
	}

	profile, err := f.peers.AskFriend(ctx, userID, friend)
	if err != nil {
		if errors.Is(err, models.ErrUnknownFriend) {
			return err.Error(), true
		}
		if errors.Is(err, peer.ErrReplyTimeout) {
			return fmt.Sprintf("⏰ %s's agent didn't answer in time. Please try again in a moment!", friend), true
		}
		slog.Error("GiftFlow: friend handshake failed", "error", err, "user_id", userID, "friend", friend)
		return fmt.Sprintf("❌ I had trouble communicating with %s's agent. Please try again!", friend), true
	}

	return peer.FormatProfile(profile), true
}

// handleCollecting covers INITIAL and COLLECTING_PREFERENCES: extract
// slots, then either advance to category selection or ask for what is
// still missing.
func (f *GiftFlow) handleCollecting(ctx context.Context, userID, userText string) (string, error) {
	before, err := f.loadPreferences(ctx, userID)
	if err != nil {
		return "", err
	}

	allowOverwrite := f.isUpdateMode(ctx, userID)
	after := f.extractor.Extract(ctx, userText, before, allowOverwrite)
	if allowOverwrite {
		if err := f.setUpdateMode(ctx, userID, false); err != nil {
			return "", err
		}
	}

	if err := f.savePreferences(ctx, userID, after); err != nil {
		return "", err
	}

	acknowledgment := acknowledgeLearned(before, after)

	if after.IsComplete(f.requiredSlots) {
		if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateSelectingCategory); err != nil {
			return "", err
		}
		reply, err := f.offerCategories(ctx, userID, after)
		if err != nil {
			return "", err
		}
		return joinNonEmpty(acknowledgment, reply), nil
	}

	if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateCollectingPreferences); err != nil {
		return "", err
	}
	return joinNonEmpty(acknowledgment, askForMissingInfo(after.MissingSlots(f.requiredSlots))), nil
}

// offerCategories generates the first category page and renders it.
func (f *GiftFlow) offerCategories(ctx context.Context, userID string, prefs models.UserPreferences) (string, error) {
	categories := f.engine.Categories(ctx, prefs)
	if err := f.saveCategories(ctx, userID, categories); err != nil {
		return "", err
	}
	return showCategoryOptions(prefs, categories), nil
}

func (f *GiftFlow) handleCategorySelection(ctx context.Context, userID, userText string) (string, error) {
	categories, err := f.loadCategories(ctx, userID)
	if err != nil {
		return "", err
	}
	prefs, err := f.loadPreferences(ctx, userID)
	if err != nil {
		return "", err
	}

	options := append(append([]string(nil), categories...), "surprise me", "show other categories")
	result := f.selector.Resolve(ctx, userText, options)

	switch result.Action {
	case ActionSelect:
		if strings.EqualFold(strings.TrimSpace(result.SelectedOption), "surprise me") ||
			strings.Contains(strings.ToLower(userText), "surprise me") {
			chosen := f.engine.SelectRandom(categories)
			return f.searchCategory(ctx, userID, prefs, chosen,
				fmt.Sprintf("I've picked *%s* for you! 🎲 Let me find some great gifts...\n\n", chosen))
		}

		chosen, outOfRange := resolveOption(result.SelectedOption, categories)
		if outOfRange {
			return fmt.Sprintf("That number is not valid. Please choose a number between 1 and %d, or select a category by name.", len(categories)), nil
		}
		if chosen == "" {
			return selectionHelpMessage, nil
		}
		return f.searchCategory(ctx, userID, prefs, chosen,
			fmt.Sprintf("Great choice! I'll look for gifts in the *%s* category...\n\n", chosen))

	case ActionMoreOptions:
		fresh := f.engine.AdditionalCategories(ctx, prefs, categories)
		if len(fresh) == 0 {
			return "I'm out of new category ideas! Please pick from the ones above, or say 'surprise me'.", nil
		}
		combined := append(categories, fresh...)
		if err := f.saveCategories(ctx, userID, combined); err != nil {
			return "", err
		}
		return showAdditionalCategories(fresh, len(categories)+1), nil

	case ActionUpdatePreferences:
		return f.startPreferenceUpdate(ctx, userID)

	default:
		return selectionHelpMessage, nil
	}
}

// searchCategory runs the product search for a chosen category and shows
// the first page of ranked recommendations.
func (f *GiftFlow) searchCategory(ctx context.Context, userID string, prefs models.UserPreferences, category, preamble string) (string, error) {
	prefs.Category = category
	if err := f.savePreferences(ctx, userID, prefs); err != nil {
		return "", err
	}

	if ok, missing := search.ValidateRequirements(prefs); !ok {
		slog.Warn("GiftFlow.searchCategory: incomplete slots at search time", "user_id", userID, "missing", missing)
		if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateCollectingPreferences); err != nil {
			return "", err
		}
		return askForMissingInfo(missing), nil
	}

	gifts, err := f.searcher.Search(ctx, prefs)
	if err != nil {
		slog.Error("GiftFlow.searchCategory: product search failed", "error", err, "user_id", userID, "category", category)
		return noGiftsMessage, nil
	}
	if len(gifts) == 0 {
		return noGiftsMessage, nil
	}

	// Every search starts a fresh result space: the ranker sees the whole
	// new result set, and stale gifts from an earlier category never leak
	// into the new pages.
	recs := f.engine.Rank(ctx, gifts, prefs)
	if len(recs) == 0 {
		return noGiftsMessage, nil
	}

	if err := f.saveAllGifts(ctx, userID, orderByRecommendation(gifts, recs)); err != nil {
		return "", err
	}
	if err := f.saveRecommendations(ctx, userID, recs); err != nil {
		return "", err
	}
	if err := f.savePaginationOffset(ctx, userID, len(recs)); err != nil {
		return "", err
	}
	if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateShowingRecommendations); err != nil {
		return "", err
	}

	return preamble + showRecommendations(prefs, recs), nil
}

// orderByRecommendation orders a result set so the ranked picks come first,
// followed by the remaining gifts in search order. Paging then continues
// past the first page without repeating what was already shown.
func orderByRecommendation(gifts []models.GiftItem, recs []models.GiftRecommendation) []models.GiftItem {
	shown := make(map[string]bool, len(recs))
	ordered := make([]models.GiftItem, 0, len(gifts))
	for _, rec := range recs {
		shown[rec.Gift.ID] = true
		ordered = append(ordered, rec.Gift)
	}
	for _, g := range gifts {
		if shown[g.ID] {
			continue
		}
		shown[g.ID] = true
		ordered = append(ordered, g)
	}
	return ordered
}

func (f *GiftFlow) handleRecommendationSelection(ctx context.Context, userID, userText string) (string, error) {
	recs, err := f.loadRecommendations(ctx, userID)
	if err != nil {
		return "", err
	}
	prefs, err := f.loadPreferences(ctx, userID)
	if err != nil {
		return "", err
	}

	options := make([]string, 0, len(recs)+2)
	for i, rec := range recs {
		options = append(options, fmt.Sprintf("%d. %s", i+1, rec.Gift.Name))
	}
	options = append(options, "show more options", "update preferences")

	result := f.selector.Resolve(ctx, userText, options)

	switch result.Action {
	case ActionSelect:
		displayed := make([]string, len(recs))
		for i, rec := range recs {
			displayed[i] = rec.Gift.Name
		}
		chosen, outOfRange := resolveOption(result.SelectedOption, displayed)
		if outOfRange || chosen == "" {
			return recommendationHelpMessage, nil
		}
		for _, rec := range recs {
			if rec.Gift.Name == chosen {
				return f.startCheckout(ctx, userID, rec.Gift)
			}
		}
		return recommendationHelpMessage, nil

	case ActionMoreOptions:
		return f.showNextRecommendations(ctx, userID, prefs)

	case ActionUpdatePreferences:
		return f.startPreferenceUpdate(ctx, userID)

	default:
		return recommendationHelpMessage, nil
	}
}

// showNextRecommendations advances the pagination cursor over the
// accumulated gift set and ranks the next page.
func (f *GiftFlow) showNextRecommendations(ctx context.Context, userID string, prefs models.UserPreferences) (string, error) {
	all, err := f.loadAllGifts(ctx, userID)
	if err != nil {
		return "", err
	}
	offset, err := f.loadPaginationOffset(ctx, userID)
	if err != nil {
		return "", err
	}

	if offset >= len(all) {
		return "I've shown you all available gifts. Please select one or update your preferences.", nil
	}

	end := offset + maxRecommendations
	if end > len(all) {
		end = len(all)
	}
	page := all[offset:end]

	recs := f.engine.Rank(ctx, page, prefs)
	if len(recs) == 0 {
		return "I've shown you all available gifts. Please select one or update your preferences.", nil
	}

	if err := f.saveRecommendations(ctx, userID, recs); err != nil {
		return "", err
	}
	if err := f.savePaginationOffset(ctx, userID, end); err != nil {
		return "", err
	}

	return showRecommendations(prefs, recs), nil
}

// startPreferenceUpdate returns to slot collection and arms overwrite mode
// so the next extraction may change already-set slots.
func (f *GiftFlow) startPreferenceUpdate(ctx context.Context, userID string) (string, error) {
	if err := f.setUpdateMode(ctx, userID, true); err != nil {
		return "", err
	}
	if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateCollectingPreferences); err != nil {
		return "", err
	}
	return updatePreferencesMessage, nil
}

// startCheckout records the selection, issues a payment link and moves the
// session to PAYMENT.
func (f *GiftFlow) startCheckout(ctx context.Context, userID string, gift models.GiftItem) (string, error) {
	if err := f.saveSelectedGift(ctx, userID, gift); err != nil {
		return "", err
	}

	paymentURL, err := f.payments.CreatePaymentLink(ctx, gift, userID)
	if err != nil {
		slog.Error("GiftFlow.startCheckout: failed to create payment link", "error", err, "user_id", userID, "gift_id", gift.ID)
		return "🎁 I couldn't set up the checkout just now. Please try selecting the gift again!", nil
	}

	paymentID := paymentURL[strings.LastIndex(paymentURL, "/")+1:]
	if err := f.stateManager.SetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPaymentID, paymentID); err != nil {
		return "", err
	}
	if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StatePayment); err != nil {
		return "", err
	}

	slog.Info("GiftFlow: gift selected, checkout issued", "user_id", userID, "gift_id", gift.ID, "payment_id", paymentID)
	return showSelectedGift(gift, paymentURL), nil
}

// handlePayment checks whether the outstanding payment has completed and
// either closes out the session or re-sends the checkout link.
func (f *GiftFlow) handlePayment(ctx context.Context, userID, userText string) (string, error) {
	paymentID, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeGiftConversation, models.DataKeyPaymentID)
	if err != nil {
		return "", err
	}

	result, err := f.payments.GetPaymentResult(ctx, paymentID)
	if err != nil {
		return "", err
	}

	if result == nil || !result.Success {
		req, err := f.payments.GetPaymentRequest(ctx, paymentID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Your payment for *%s* is still pending. Complete it at the checkout link I sent, then let me know! 💳", req.GiftName), nil
	}

	if err := f.stateManager.SetCurrentState(ctx, userID, models.FlowTypeGiftConversation, models.StateCompleted); err != nil {
		return "", err
	}

	f.notifyFriendIfKnown(ctx, userID)

	return fmt.Sprintf("🎉 Payment confirmed! Transaction %s for *%s* is complete. Your gift is on its way! 🎁\n\nCome back any time you need another gift!", result.TransactionID, result.GiftName), nil
}

// notifyFriendIfKnown sends a gift-sent notification when the recipient is
// one of the configured friend agents.
func (f *GiftFlow) notifyFriendIfKnown(ctx context.Context, userID string) {
	if f.peers == nil {
		return
	}

	prefs, err := f.loadPreferences(ctx, userID)
	if err != nil || prefs.Recipient == "" {
		return
	}
	gift, err := f.loadSelectedGift(ctx, userID)
	if err != nil || gift == nil {
		return
	}

	ack, err := f.peers.NotifyGiftSent(ctx, prefs.Recipient, *gift)
	if err != nil {
		if !errors.Is(err, models.ErrUnknownFriend) {
			slog.Warn("GiftFlow: gift notification failed", "error", err, "user_id", userID, "recipient", prefs.Recipient)
		}
		return
	}
	if ack != nil {
		slog.Info("GiftFlow: friend agent acknowledged the gift", "user_id", userID, "recipient", prefs.Recipient, "message", ack.Message)
	}
}

// handleCompleted starts a fresh session on the next message.
func (f *GiftFlow) handleCompleted(ctx context.Context, userID, userText string) (string, error) {
	if err := f.stateManager.ResetState(ctx, userID, models.FlowTypeGiftConversation); err != nil {
		return "", err
	}
	slog.Info("GiftFlow: session restarted after completion", "user_id", userID)
	return f.dispatch(ctx, userID, userText)
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
