package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/ParthPatel00/SantAI/internal/flow"
	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/payment"
	"github.com/ParthPatel00/SantAI/internal/peer"
	"github.com/ParthPatel00/SantAI/internal/search"
	"github.com/ParthPatel00/SantAI/internal/store"
)

// offlineGenAI always fails, driving the flow's deterministic fallbacks.
type offlineGenAI struct{}

func (offlineGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return "", errors.New("model unavailable")
}

func (offlineGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", errors.New("model unavailable")
}

type serverFixture struct {
	server   *Server
	handler  http.Handler
	payments *payment.Service
	st       *store.InMemoryStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	st := store.NewInMemoryStore()
	payments := payment.NewService(st)
	giftFlow := flow.NewGiftFlow(
		flow.NewStoreBasedStateManager(st),
		offlineGenAI{},
		search.NewCatalogClient(),
		payments,
		nil,
	)
	srv := NewServer(giftFlow, nil, payments, st)
	return &serverFixture{server: srv, handler: srv.Handler(), payments: payments, st: st}
}

func (fx *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func decodeAPIResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode API response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestChatMessagesHandler(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/chat/messages", `{"user_id": "user1", "message": "birthday gift for my sister who loves hiking, under 50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeAPIResponse(t, rec)
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("response status = %q", resp.Status)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %T", resp.Result)
	}
	reply, _ := result["reply"].(string)
	if !strings.Contains(reply, "Electronics") {
		t.Errorf("reply = %q, want category menu", reply)
	}
}

// TestChatMessagesHandlerAuditTrail checks a chat turn leaves one stored
// inbound response and one sent receipt behind.
func TestChatMessagesHandlerAuditTrail(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/chat/messages", `{"user_id": "user1", "message": "hi there"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	responses, err := fx.st.GetResponses()
	if err != nil {
		t.Fatalf("GetResponses() error: %v", err)
	}
	if len(responses) != 1 || responses[0].From != "user1" || responses[0].Body != "hi there" {
		t.Errorf("responses = %+v, want one entry from user1", responses)
	}

	receipts, err := fx.st.GetReceipts()
	if err != nil {
		t.Fatalf("GetReceipts() error: %v", err)
	}
	if len(receipts) != 1 || receipts[0].To != "user1" || receipts[0].Status != models.MessageStatusSent {
		t.Errorf("receipts = %+v, want one sent receipt for user1", receipts)
	}

	// A rejected turn records nothing.
	fx.do(t, http.MethodPost, "/chat/messages", `{"user_id": "", "message": "hi"}`)
	if responses, _ := fx.st.GetResponses(); len(responses) != 1 {
		t.Errorf("invalid turn was recorded: %+v", responses)
	}
}

func TestChatMessagesHandlerValidation(t *testing.T) {
	fx := newServerFixture(t)

	if rec := fx.do(t, http.MethodGet, "/chat/messages", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
	if rec := fx.do(t, http.MethodPost, "/chat/messages", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
	if rec := fx.do(t, http.MethodPost, "/chat/messages", `{"user_id": "", "message": "hi"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty user status = %d, want 400", rec.Code)
	}
	if rec := fx.do(t, http.MethodPost, "/chat/messages", `{"user_id": "u", "message": ""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}
}

func TestPeerReplyHandlerWithoutCoordinator(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/peer/replies", `{"type": "peer_personality_response", "request_id": "abc", "answer": "kind"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestPeerReplyHandlerUnmatched(t *testing.T) {
	st := store.NewInMemoryStore()
	payments := payment.NewService(st)
	giftFlow := flow.NewGiftFlow(flow.NewStoreBasedStateManager(st), offlineGenAI{}, search.NewCatalogClient(), payments, nil)
	coordinator := peer.NewCoordinator(peer.NewDirectory(nil), peer.NewHTTPSender(), search.NewCatalogClient())
	srv := NewServer(giftFlow, coordinator, payments, st)
	fx := &serverFixture{server: srv, handler: srv.Handler(), payments: payments, st: st}

	rec := fx.do(t, http.MethodPost, "/peer/replies", `{"type": "peer_personality_response", "request_id": "nobody-asked", "answer": "kind"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmatched reply status = %d, want 404", rec.Code)
	}

	rec = fx.do(t, http.MethodPost, "/peer/replies", `{"type": "bogus", "request_id": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid reply status = %d, want 400", rec.Code)
	}
}

func TestCheckoutPages(t *testing.T) {
	fx := newServerFixture(t)

	gift := models.GiftItem{ID: "gift_1", Name: "Trail Backpack", Price: "$75"}
	url, err := fx.payments.CreatePaymentLink(context.Background(), gift, "user1")
	if err != nil {
		t.Fatalf("CreatePaymentLink() error: %v", err)
	}
	paymentID := url[strings.LastIndex(url, "/")+1:]

	// Checkout page shows the gift and the test card.
	rec := fx.do(t, http.MethodGet, "/payment/"+paymentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout page status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Trail Backpack") || !strings.Contains(body, "4242 4242 4242 4242") {
		t.Errorf("checkout page missing content:\n%s", body)
	}

	// Submitting the form completes the payment and redirects.
	rec = fx.do(t, http.MethodPost, "/process-payment/"+paymentID, "card_number=4242")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("process status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/payment-success/"+paymentID {
		t.Errorf("redirect location = %q", loc)
	}

	rec = fx.do(t, http.MethodGet, "/payment-success/"+paymentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("success page status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "txn_") {
		t.Errorf("success page missing transaction id:\n%s", rec.Body.String())
	}
}

func TestCheckoutPageNotFound(t *testing.T) {
	fx := newServerFixture(t)

	if rec := fx.do(t, http.MethodGet, "/payment/no-such-id", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown payment status = %d, want 404", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/payment-success/no-such-id", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unpaid success page status = %d, want 404", rec.Code)
	}
}

func TestPaymentJSONEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/create-test-payment",
		`{"user_id": "user1", "gift": {"id": "gift_9", "name": "Espresso Kit", "price": "$120"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeAPIResponse(t, rec)
	result, _ := resp.Result.(map[string]interface{})
	paymentURL, _ := result["payment_url"].(string)
	if paymentURL == "" {
		t.Fatalf("no payment_url in %v", resp.Result)
	}
	paymentID := paymentURL[strings.LastIndex(paymentURL, "/")+1:]

	rec = fx.do(t, http.MethodGet, "/api/payment/"+paymentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Espresso Kit") {
		t.Errorf("payment lookup missing gift: %s", rec.Body.String())
	}

	rec = fx.do(t, http.MethodPost, "/api/process-payment/"+paymentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "txn_") {
		t.Errorf("process result missing transaction id: %s", rec.Body.String())
	}

	if rec := fx.do(t, http.MethodPost, "/api/process-payment/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown payment process status = %d, want 404", rec.Code)
	}
	if rec := fx.do(t, http.MethodPost, "/api/create-test-payment", `{"gift": {"id": "", "name": "", "price": ""}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid gift status = %d, want 400", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
