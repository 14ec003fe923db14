// Package api provides the mock checkout pages and payment endpoints.
package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// checkoutTemplate renders the mock payment page. The card fields are
// prefilled with test values; any submission completes the payment.
var checkoutTemplate = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head><title>SantAI Checkout</title></head>
<body>
  <h1>🎅 SantAI Checkout</h1>
  <h2>{{.GiftName}}</h2>
  <p>Amount due: <strong>{{.Price}}</strong></p>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <form method="POST" action="/process-payment/{{.PaymentID}}">
    <label>Card number <input name="card_number" value="4242 4242 4242 4242"></label><br>
    <label>Expiry <input name="expiry" value="12/28"></label>
    <label>CVC <input name="cvc" value="123"></label><br>
    <button type="submit">Pay {{.Price}}</button>
  </form>
  <p><small>This is a simulated checkout. No real charge will be made.</small></p>
</body>
</html>`))

// successTemplate renders the post-payment confirmation page.
var successTemplate = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><title>Payment Complete</title></head>
<body>
  <h1>🎉 Payment Complete!</h1>
  <p>Your payment for <strong>{{.GiftName}}</strong> went through.</p>
  <p>Transaction: <code>{{.TransactionID}}</code></p>
  <p>Amount: {{.Amount}}</p>
  <p>Head back to the chat and let SantAI know you've paid!</p>
</body>
</html>`))

// paymentIDFromPath extracts the trailing payment ID from paths like
// /payment/{id} or /api/process-payment/{id}.
func paymentIDFromPath(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// paymentPageHandler serves the checkout page (GET /payment/{id}).
func (s *Server) paymentPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	paymentID := paymentIDFromPath(r.URL.Path, "/payment/")
	if paymentID == "" {
		http.NotFound(w, r)
		return
	}

	req, err := s.payments.GetPaymentRequest(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, models.ErrPaymentNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("Server.paymentPageHandler: failed to load payment request", "error", err, "payment_id", paymentID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := checkoutTemplate.Execute(w, req); err != nil {
		slog.Error("Server.paymentPageHandler: failed to render checkout page", "error", err, "payment_id", paymentID)
	}
}

// processPaymentFormHandler completes a checkout-page payment and redirects
// to the success page (POST /process-payment/{id}).
func (s *Server) processPaymentFormHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	paymentID := paymentIDFromPath(r.URL.Path, "/process-payment/")
	if paymentID == "" {
		http.NotFound(w, r)
		return
	}

	result, err := s.payments.ProcessPayment(r.Context(), paymentID)
	if err != nil {
		slog.Error("Server.processPaymentFormHandler: processing failed", "error", err, "payment_id", paymentID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !result.Success {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, "/payment-success/"+paymentID, http.StatusSeeOther)
}

// paymentSuccessPageHandler serves the confirmation page
// (GET /payment-success/{id}).
func (s *Server) paymentSuccessPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	paymentID := paymentIDFromPath(r.URL.Path, "/payment-success/")
	if paymentID == "" {
		http.NotFound(w, r)
		return
	}

	result, err := s.payments.GetPaymentResult(r.Context(), paymentID)
	if err != nil {
		slog.Error("Server.paymentSuccessPageHandler: failed to load result", "error", err, "payment_id", paymentID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if result == nil || !result.Success {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := successTemplate.Execute(w, result); err != nil {
		slog.Error("Server.paymentSuccessPageHandler: failed to render success page", "error", err, "payment_id", paymentID)
	}
}

// getPaymentHandler returns a payment request as JSON
// (GET /api/payment/{id}).
func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	paymentID := paymentIDFromPath(r.URL.Path, "/api/payment/")
	if paymentID == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Missing payment id"))
		return
	}

	req, err := s.payments.GetPaymentRequest(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, models.ErrPaymentNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Payment not found"))
			return
		}
		slog.Error("Server.getPaymentHandler: failed to load payment request", "error", err, "payment_id", paymentID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load payment"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(req))
}

// processPaymentHandler completes a payment and returns the result as JSON
// (POST /api/process-payment/{id}).
func (s *Server) processPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	paymentID := paymentIDFromPath(r.URL.Path, "/api/process-payment/")
	if paymentID == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Missing payment id"))
		return
	}

	result, err := s.payments.ProcessPayment(r.Context(), paymentID)
	if err != nil {
		slog.Error("Server.processPaymentHandler: processing failed", "error", err, "payment_id", paymentID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process payment"))
		return
	}
	if !result.Success {
		writeJSONResponse(w, http.StatusNotFound, models.Error(result.Error))
		return
	}

	slog.Info("Server.processPaymentHandler: payment processed", "payment_id", paymentID, "transaction_id", result.TransactionID)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// createTestPaymentHandler creates a payment request for an ad-hoc gift, for
// exercising the checkout without a conversation
// (POST /api/create-test-payment).
func (s *Server) createTestPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID string          `json:"user_id"`
		Gift   models.GiftItem `json:"gift"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" {
		req.UserID = "test-user"
	}

	url, err := s.payments.CreatePaymentLink(r.Context(), req.Gift, req.UserID)
	if err != nil {
		slog.Warn("Server.createTestPaymentHandler: failed to create payment", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Test payment created", map[string]string{"payment_url": url}))
}
