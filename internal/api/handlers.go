// Package api provides HTTP handlers for SantAI endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/peer"
)

// chatMessageRequest is one inbound chat turn.
type chatMessageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// chatMessageResult carries the assistant's reply for a chat turn.
type chatMessageResult struct {
	UserID string `json:"user_id"`
	Reply  string `json:"reply"`
}

// chatMessagesHandler drives the gift conversation (POST /chat/messages).
func (s *Server) chatMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatMessagesHandler: processing chat request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatMessagesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatMessagesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	inbound := models.Response{From: req.UserID, Body: req.Message, Time: time.Now().Unix()}
	if err := inbound.Validate(); err != nil {
		slog.Warn("Server.chatMessagesHandler: validation failed", "error", err, "user_id", req.UserID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.AddResponse(inbound); err != nil {
		slog.Warn("Server.chatMessagesHandler: failed to record inbound response", "error", err, "user_id", req.UserID)
	}

	reply, err := s.giftFlow.ProcessResponse(r.Context(), req.UserID, req.Message)
	if err != nil {
		slog.Error("Server.chatMessagesHandler: conversation turn failed", "error", err, "user_id", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	receipt := models.Receipt{To: req.UserID, Status: models.MessageStatusSent, Time: time.Now().Unix()}
	if err := s.st.AddReceipt(receipt); err != nil {
		slog.Warn("Server.chatMessagesHandler: failed to record receipt", "error", err, "user_id", req.UserID)
	}

	slog.Info("Server.chatMessagesHandler: turn processed", "user_id", req.UserID)
	writeJSONResponse(w, http.StatusOK, models.Success(chatMessageResult{UserID: req.UserID, Reply: reply}))
}

// peerReplyHandler delivers a friend agent's answer to the coordinator
// (POST /peer/replies). Replies are matched by correlation ID.
func (s *Server) peerReplyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.peerReplyHandler: processing peer reply", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.peerReplyHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.coordinator == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Peer agents are not configured"))
		return
	}

	var reply models.PeerReply
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		slog.Warn("Server.peerReplyHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := s.coordinator.HandleReply(reply); err != nil {
		if errors.Is(err, peer.ErrUnknownRequestID) {
			slog.Warn("Server.peerReplyHandler: unmatched reply", "request_id", reply.RequestID)
			writeJSONResponse(w, http.StatusNotFound, models.Error("No pending request for this reply"))
			return
		}
		slog.Warn("Server.peerReplyHandler: invalid reply", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.peerReplyHandler: reply delivered", "request_id", reply.RequestID, "type", reply.Type)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Reply delivered", nil))
}

// healthHandler provides a health check endpoint for monitoring.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.coordinator != nil {
		healthData["pending_peer_requests"] = s.coordinator.PendingCount()
	}

	writeJSONResponse(w, http.StatusOK, healthData)
}
