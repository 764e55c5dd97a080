package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relaydesk/warelay/internal/channels/whatsapp"
	"github.com/relaydesk/warelay/internal/conversation"
	"github.com/relaydesk/warelay/internal/http/handlers"
	"github.com/relaydesk/warelay/pkg/logging"
)

type echoGenerator struct{}

func (echoGenerator) Reply(_ context.Context, message string) (string, error) {
	return "reply to " + message, nil
}

type recordingSender struct {
	sent []string
}

func (s *recordingSender) SendText(_ context.Context, to, text string) (string, error) {
	s.sent = append(s.sent, to+": "+text)
	return "prov_1", nil
}

func newTestRouter(t *testing.T, operatorSecret string) (http.Handler, *conversation.MemoryStore, *recordingSender) {
	t.Helper()

	logger := logging.Default()
	store := conversation.NewMemoryStore()
	sender := &recordingSender{}

	webhook := whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
		VerifyToken: "verify-me",
		Store:       store,
		Generator:   echoGenerator{},
		Sender:      sender,
		Logger:      logger,
	})
	dashboard := handlers.NewDashboardHandler(handlers.DashboardConfig{
		Store:     store,
		Sender:    sender,
		Generator: echoGenerator{},
		Logger:    logger,
	})

	cfg := &Config{
		Logger:             logger,
		Webhook:            webhook,
		Dashboard:          dashboard,
		OperatorAuthSecret: operatorSecret,
	}
	return New(cfg), store, sender
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterWebhookVerification(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=99", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "99" {
		t.Errorf("expected challenge echo, got %q", rr.Body.String())
	}
}

func TestRouterWebhookToDashboardFlow(t *testing.T) {
	router, _, sender := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"from": "+91900", "text": "Hi"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one outbound send, got %d", len(sender.sent))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp struct {
		Chats []conversation.Summary `json:"chats"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode chats response: %v", err)
	}
	if len(resp.Chats) != 1 || resp.Chats[0].Sender != "+91900" {
		t.Fatalf("expected one chat for +91900, got %+v", resp.Chats)
	}
}

func TestRouterMutatingRoutesRequireOperatorJWT(t *testing.T) {
	router, _, _ := newTestRouter(t, "operator-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/toggle-ai", strings.NewReader(`{"sender": "+91900", "enabled": false}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("operator-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/toggle-ai", strings.NewReader(`{"sender": "+91900", "enabled": false}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterReadsStayOpenWithAuthEnabled(t *testing.T) {
	router, _, _ := newTestRouter(t, "operator-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
