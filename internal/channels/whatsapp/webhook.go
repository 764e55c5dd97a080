package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaydesk/warelay/internal/conversation"
	observemetrics "github.com/relaydesk/warelay/internal/observability/metrics"
	"github.com/relaydesk/warelay/pkg/logging"
)

// MessageSender delivers a reply to a recipient through the provider.
// Implemented by Client (single validated endpoint) and Dispatcher
// (multi-candidate compatibility mode).
type MessageSender interface {
	SendText(ctx context.Context, to, text string) (string, error)
}

type replyGenerator interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Webhook processing outcomes, used as log fields and metric labels.
const (
	outcomeUnmatched      = "unmatched"
	outcomeDuplicate      = "duplicate"
	outcomeStored         = "stored"
	outcomeReplied        = "replied"
	outcomeDispatchFailed = "dispatch_failed"
)

// WebhookHandler handles provider webhook verification and inbound
// messages: receive, extract, store, optionally generate a reply and
// dispatch it. Internal failures never surface as webhook errors; the
// provider retries non-2xx responses and retries would duplicate
// stored messages.
type WebhookHandler struct {
	verifyToken string
	store       conversation.Store
	generator   replyGenerator
	sender      MessageSender
	logger      *logging.Logger
	metrics     *observemetrics.RelayMetrics
	stats       *observemetrics.DispatchStats
	timeout     time.Duration
}

// WebhookConfig configures a WebhookHandler.
type WebhookConfig struct {
	VerifyToken string
	Store       conversation.Store
	Generator   replyGenerator
	Sender      MessageSender
	Logger      *logging.Logger
	Metrics     *observemetrics.RelayMetrics
	Stats       *observemetrics.DispatchStats
	Timeout     time.Duration
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &WebhookHandler{
		verifyToken: cfg.VerifyToken,
		store:       cfg.Store,
		generator:   cfg.Generator,
		sender:      cfg.Sender,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		stats:       cfg.Stats,
		timeout:     timeout,
	}
}

// HandleVerification handles the GET webhook verification handshake.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook deliveries. Every path ends in a
// 200 acknowledgment.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		h.ack(w, start, outcomeUnmatched)
		return
	}

	ext, err := Extract(body)
	if err != nil {
		h.logger.Warn("unrecognized webhook payload", "error", err)
		h.metrics.ObserveInbound(outcomeUnmatched, "none")
		h.ack(w, start, outcomeUnmatched)
		return
	}

	ctx := r.Context()

	seen, err := h.store.Seen(ctx, ext.ProviderMessageID)
	if err != nil {
		h.logger.Error("dedup check failed", "error", err, "provider_message_id", ext.ProviderMessageID)
	} else if seen {
		h.logger.Info("duplicate webhook delivery ignored", "provider_message_id", ext.ProviderMessageID)
		h.metrics.ObserveInbound(outcomeDuplicate, ext.Shape)
		h.ack(w, start, outcomeDuplicate)
		return
	}

	if _, err := h.store.Record(ctx, ext.Sender, conversation.Message{
		Text:              ext.Text,
		Direction:         conversation.DirectionInbound,
		Origin:            conversation.OriginUser,
		ProviderMessageID: ext.ProviderMessageID,
	}); err != nil {
		h.logger.Error("failed to record inbound message", "error", err, "sender", ext.Sender)
		h.ack(w, start, outcomeUnmatched)
		return
	}

	enabled, err := h.store.AIEnabled(ctx, ext.Sender)
	if err != nil {
		h.logger.Error("ai toggle lookup failed", "error", err, "sender", ext.Sender)
	}
	if !enabled {
		h.metrics.ObserveInbound(outcomeStored, ext.Shape)
		h.ack(w, start, outcomeStored)
		return
	}

	outcome := h.reply(ctx, ext.Sender, ext.Text)
	h.metrics.ObserveInbound(outcome, ext.Shape)
	h.ack(w, start, outcome)
}

// reply runs generation and dispatch for one inbound message and
// records the outbound message on successful delivery.
func (h *WebhookHandler) reply(ctx context.Context, sender, text string) string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	replyText, err := h.generator.Reply(ctx, text)
	if err != nil {
		// Local recovery: the fallback reply is still dispatched.
		h.logger.Warn("reply generation failed, using fallback", "error", err, "sender", sender)
		h.metrics.ObserveGeneration("fallback")
	} else {
		h.metrics.ObserveGeneration("success")
	}

	providerID, err := h.sender.SendText(ctx, sender, replyText)
	if err != nil {
		h.logger.Error("reply dispatch failed", "error", err, "sender", sender)
		h.metrics.ObserveDispatch("failed", "webhook")
		h.stats.RecordFailure()
		return outcomeDispatchFailed
	}
	h.metrics.ObserveDispatch("success", "webhook")
	h.stats.RecordSuccess()

	if _, err := h.store.Record(ctx, sender, conversation.Message{
		Text:              replyText,
		Direction:         conversation.DirectionOutbound,
		Origin:            conversation.OriginAI,
		ProviderMessageID: providerID,
	}); err != nil {
		h.logger.Error("failed to record outbound message", "error", err, "sender", sender)
	}
	return outcomeReplied
}

// ack acknowledges receipt. Always 200: provider-side retry storms on
// non-2xx would duplicate stored messages.
func (h *WebhookHandler) ack(w http.ResponseWriter, start time.Time, outcome string) {
	h.metrics.ObserveWebhookLatency(outcome, time.Since(start).Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
