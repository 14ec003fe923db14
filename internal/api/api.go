// Package api exposes the HTTP surface of SantAI: the chat endpoint the
// conversation flow is driven through, the peer-agent reply endpoint,
// Twilio webhook delivery, and the mock checkout pages.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ParthPatel00/SantAI/internal/flow"
	"github.com/ParthPatel00/SantAI/internal/payment"
	"github.com/ParthPatel00/SantAI/internal/peer"
	"github.com/ParthPatel00/SantAI/internal/store"
)

// Server defaults.
const (
	DefaultAddr            = ":8001"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
)

// Opts holds configuration for the API server.
type Opts struct {
	// Addr is the listen address.
	Addr string
	// Webhook is the inbound-message webhook handler, typically
	// TwilioService.WebhookHandler. Nil disables the route.
	Webhook http.HandlerFunc
}

// Option configures server construction.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhook mounts an inbound-message webhook at /webhook/twilio.
func WithWebhook(handler http.HandlerFunc) Option {
	return func(o *Opts) { o.Webhook = handler }
}

// Server serves the SantAI HTTP API.
type Server struct {
	giftFlow    *flow.GiftFlow
	coordinator *peer.Coordinator
	payments    *payment.Service
	st          store.Store
	webhook     http.HandlerFunc

	addr       string
	httpServer *http.Server
}

// NewServer creates the API server. The coordinator may be nil when no
// friend agents are configured; the peer reply endpoint then rejects all
// traffic.
func NewServer(giftFlow *flow.GiftFlow, coordinator *peer.Coordinator, payments *payment.Service, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		giftFlow:    giftFlow,
		coordinator: coordinator,
		payments:    payments,
		st:          st,
		webhook:     cfg.Webhook,
		addr:        cfg.Addr,
	}
}

// routes builds the request multiplexer.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat/messages", s.chatMessagesHandler)
	mux.HandleFunc("/peer/replies", s.peerReplyHandler)
	mux.HandleFunc("/health", s.healthHandler)

	if s.webhook != nil {
		mux.HandleFunc("/webhook/twilio", s.webhook)
	}

	// Mock checkout: HTML pages for the user, JSON endpoints for tooling.
	mux.HandleFunc("/payment/", s.paymentPageHandler)
	mux.HandleFunc("/process-payment/", s.processPaymentFormHandler)
	mux.HandleFunc("/payment-success/", s.paymentSuccessPageHandler)
	mux.HandleFunc("/api/payment/", s.getPaymentHandler)
	mux.HandleFunc("/api/process-payment/", s.processPaymentHandler)
	mux.HandleFunc("/api/create-test-payment", s.createTestPaymentHandler)

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the routed handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
