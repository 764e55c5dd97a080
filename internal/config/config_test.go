package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123456")
	t.Setenv("VERIFY_TOKEN", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("WHATSAPP_API_BASE_URL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.WhatsAppBaseURL != "https://wb.omni.tatatelebusiness.com/whatsapp-cloud" {
		t.Fatalf("expected default base URL, got %s", cfg.WhatsAppBaseURL)
	}
	if cfg.WhatsAppAuthScheme != AuthSchemeBearer {
		t.Fatalf("expected bearer auth scheme by default, got %s", cfg.WhatsAppAuthScheme)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.ReplyMaxTokens != 150 {
		t.Fatalf("expected default reply token bound, got %d", cfg.ReplyMaxTokens)
	}
	if cfg.DispatchCompatFallback {
		t.Fatalf("expected compat fallback disabled by default")
	}
	if cfg.ConversationBackend != BackendMemory {
		t.Fatalf("expected memory backend by default, got %s", cfg.ConversationBackend)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("expected default http timeout, got %s", cfg.HTTPTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("WHATSAPP_AUTH_SCHEME", "TOKEN")
	t.Setenv("DISPATCH_COMPAT_FALLBACK", "true")
	t.Setenv("CONVERSATION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("REPLY_MAX_TOKENS", "100")
	t.Setenv("HTTP_TIMEOUT", "5s")
	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.WhatsAppAuthScheme != AuthSchemeToken {
		t.Fatalf("expected normalized token scheme, got %s", cfg.WhatsAppAuthScheme)
	}
	if !cfg.DispatchCompatFallback {
		t.Fatalf("expected compat fallback enabled")
	}
	if cfg.ConversationBackend != BackendRedis {
		t.Fatalf("expected redis backend, got %s", cfg.ConversationBackend)
	}
	if cfg.RedisAddr != "localhost:6380" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
	if cfg.ReplyMaxTokens != 100 {
		t.Fatalf("expected token bound override, got %d", cfg.ReplyMaxTokens)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.HTTPTimeout)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	t.Setenv("VERIFY_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "VERIFY_TOKEN", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected error to name %s, got %v", key, err)
		}
	}
}

func TestValidateOK(t *testing.T) {
	setRequired(t)
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsUnknownAuthScheme(t *testing.T) {
	setRequired(t)
	t.Setenv("WHATSAPP_AUTH_SCHEME", "basic")
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected auth scheme validation error")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("CONVERSATION_BACKEND", "dynamo")
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected backend validation error")
	}
}
