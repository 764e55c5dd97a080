package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/warelay/internal/conversation"
	observemetrics "github.com/relaydesk/warelay/internal/observability/metrics"
	"github.com/relaydesk/warelay/pkg/logging"
)

type messageSender interface {
	SendText(ctx context.Context, to, text string) (string, error)
}

type replyGenerator interface {
	Reply(ctx context.Context, message string) (string, error)
}

// DashboardHandler hosts the operator dashboard API: conversation
// listings, manual sends, the per-conversation AI toggle, and message
// simulation for local testing.
type DashboardHandler struct {
	store     conversation.Store
	sender    messageSender
	generator replyGenerator
	logger    *logging.Logger
	metrics   *observemetrics.RelayMetrics
	stats     *observemetrics.DispatchStats
}

type DashboardConfig struct {
	Store     conversation.Store
	Sender    messageSender
	Generator replyGenerator
	Logger    *logging.Logger
	Metrics   *observemetrics.RelayMetrics
	Stats     *observemetrics.DispatchStats
}

func NewDashboardHandler(cfg DashboardConfig) *DashboardHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &DashboardHandler{
		store:     cfg.Store,
		sender:    cfg.Sender,
		generator: cfg.Generator,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		stats:     cfg.Stats,
	}
}

// ListChats returns one summary per conversation, most recent first.
func (h *DashboardHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.Summaries(r.Context())
	if err != nil {
		h.logger.Error("list chats failed", "error", err)
		http.Error(w, "failed to list chats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": summaries})
}

// ListMessages returns the full message history for one sender.
func (h *DashboardHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sender := strings.TrimSpace(chi.URLParam(r, "phone"))
	if sender == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}
	msgs, err := h.store.List(r.Context(), sender)
	if err != nil {
		h.logger.Error("list messages failed", "error", err, "sender", sender)
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sender": sender, "messages": msgs})
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send delivers an operator-written message and records it in the
// conversation.
func (h *DashboardHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.To = strings.TrimSpace(req.To)
	req.Message = strings.TrimSpace(req.Message)
	if req.To == "" || req.Message == "" {
		http.Error(w, "to and message are required", http.StatusBadRequest)
		return
	}

	providerID, err := h.sender.SendText(r.Context(), req.To, req.Message)
	if err != nil {
		h.logger.Error("manual send failed", "error", err, "to", req.To)
		h.metrics.ObserveDispatch("failed", "dashboard")
		h.stats.RecordFailure()
		http.Error(w, "failed to send message", http.StatusBadGateway)
		return
	}
	h.metrics.ObserveDispatch("success", "dashboard")
	h.stats.RecordSuccess()

	msg, err := h.store.Record(r.Context(), req.To, conversation.Message{
		Text:              req.Message,
		Direction:         conversation.DirectionOutbound,
		Origin:            conversation.OriginAgent,
		ProviderMessageID: providerID,
	})
	if err != nil {
		h.logger.Error("failed to record manual send", "error", err, "to", req.To)
		http.Error(w, "sent but failed to record", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "message": msg})
}

type toggleAIRequest struct {
	Sender  string `json:"sender"`
	Enabled bool   `json:"enabled"`
}

// ToggleAI switches automatic replies on or off for one conversation.
func (h *DashboardHandler) ToggleAI(w http.ResponseWriter, r *http.Request) {
	var req toggleAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Sender = strings.TrimSpace(req.Sender)
	if req.Sender == "" {
		http.Error(w, "sender is required", http.StatusBadRequest)
		return
	}
	if err := h.store.SetAIEnabled(r.Context(), req.Sender, req.Enabled); err != nil {
		h.logger.Error("toggle ai failed", "error", err, "sender", req.Sender)
		http.Error(w, "failed to toggle ai", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sender": req.Sender, "ai_enabled": req.Enabled})
}

type simulateRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// Simulate injects an inbound message as if the customer had sent it,
// running generation but not provider dispatch. It exists so the
// pipeline can be exercised without real webhook traffic.
func (h *DashboardHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.From = strings.TrimSpace(req.From)
	req.Message = strings.TrimSpace(req.Message)
	if req.From == "" || req.Message == "" {
		http.Error(w, "from and message are required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.Record(r.Context(), req.From, conversation.Message{
		Text:      req.Message,
		Direction: conversation.DirectionInbound,
		Origin:    conversation.OriginUser,
	}); err != nil {
		h.logger.Error("failed to record simulated message", "error", err, "sender", req.From)
		http.Error(w, "failed to record message", http.StatusInternalServerError)
		return
	}

	enabled, err := h.store.AIEnabled(r.Context(), req.From)
	if err != nil {
		h.logger.Error("ai toggle lookup failed", "error", err, "sender", req.From)
	}
	if !enabled {
		writeJSON(w, http.StatusOK, map[string]any{"status": "stored", "reply": nil})
		return
	}

	reply, err := h.generator.Reply(r.Context(), req.Message)
	if err != nil {
		h.logger.Warn("simulated reply generation failed, using fallback", "error", err, "sender", req.From)
		h.metrics.ObserveGeneration("fallback")
	} else {
		h.metrics.ObserveGeneration("success")
	}

	msg, err := h.store.Record(r.Context(), req.From, conversation.Message{
		Text:      reply,
		Direction: conversation.DirectionOutbound,
		Origin:    conversation.OriginAI,
	})
	if err != nil {
		h.logger.Error("failed to record simulated reply", "error", err, "sender", req.From)
		http.Error(w, "failed to record reply", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "replied", "reply": msg})
}

// Stats reports conversation totals and delivery outcomes.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.Summaries(r.Context())
	if err != nil {
		h.logger.Error("stats failed", "error", err)
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	var messages, aiEnabled int
	for _, s := range summaries {
		messages += s.MessageCount
		if s.AIEnabled {
			aiEnabled++
		}
	}
	delivered, failed, rate := h.stats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": len(summaries),
		"messages":      messages,
		"ai_enabled":    aiEnabled,
		"dispatch": map[string]any{
			"delivered":    delivered,
			"failed":       failed,
			"success_rate": rate,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
