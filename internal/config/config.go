package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth scheme values for the provider send API. The provider docs are
// inconsistent about "Bearer <token>" vs a bare token header, so the
// choice is configuration rather than a guess baked into code.
const (
	AuthSchemeBearer = "bearer"
	AuthSchemeToken  = "token"
)

// Conversation store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppBaseURL       string
	WhatsAppAuthScheme    string
	VerifyToken           string

	OpenAIAPIKey   string
	OpenAIModel    string
	GeminiAPIKey   string
	ReplyMaxTokens int

	DispatchCompatFallback bool

	ConversationBackend string
	RedisAddr           string
	RedisPassword       string

	HTTPTimeout time.Duration

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppBaseURL:       getEnv("WHATSAPP_API_BASE_URL", "https://wb.omni.tatatelebusiness.com/whatsapp-cloud"),
		WhatsAppAuthScheme:    strings.ToLower(strings.TrimSpace(getEnv("WHATSAPP_AUTH_SCHEME", AuthSchemeBearer))),
		VerifyToken:           getEnv("VERIFY_TOKEN", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ReplyMaxTokens: getEnvAsInt("REPLY_MAX_TOKENS", 150),

		DispatchCompatFallback: getEnvAsBool("DISPATCH_COMPAT_FALLBACK", false),

		ConversationBackend: strings.ToLower(strings.TrimSpace(getEnv("CONVERSATION_BACKEND", BackendMemory))),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),

		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// Validate reports every missing or invalid required setting. Startup
// must fail loudly on error rather than degrade silently.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.WhatsAppToken) == "" {
		missing = append(missing, "WHATSAPP_TOKEN")
	}
	if strings.TrimSpace(c.WhatsAppPhoneNumberID) == "" {
		missing = append(missing, "WHATSAPP_PHONE_NUMBER_ID")
	}
	if strings.TrimSpace(c.VerifyToken) == "" {
		missing = append(missing, "VERIFY_TOKEN")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	switch c.WhatsAppAuthScheme {
	case AuthSchemeBearer, AuthSchemeToken:
	default:
		return fmt.Errorf("config: unknown WHATSAPP_AUTH_SCHEME %q", c.WhatsAppAuthScheme)
	}
	switch c.ConversationBackend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("config: CONVERSATION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown CONVERSATION_BACKEND %q", c.ConversationBackend)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
