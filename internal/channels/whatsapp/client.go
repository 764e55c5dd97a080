package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaydesk/warelay/pkg/logging"
)

const (
	defaultBaseURL     = "https://wb.omni.tatatelebusiness.com/whatsapp-cloud"
	defaultHTTPTimeout = 10 * time.Second
)

// AuthScheme selects how the provider token is presented. The provider
// docs disagree between "Bearer <token>" and a bare token header.
type AuthScheme string

const (
	AuthBearer AuthScheme = "bearer"
	AuthToken  AuthScheme = "token"
)

// ClientConfig controls how the provider client behaves.
type ClientConfig struct {
	BaseURL       string
	Token         string
	PhoneNumberID string
	AuthScheme    AuthScheme
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *logging.Logger
}

// Client sends text messages through the provider's validated send
// endpoint.
type Client struct {
	baseURL       string
	token         string
	phoneNumberID string
	authScheme    AuthScheme
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewClient creates a configured Client with sane defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("whatsapp: provider token is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	authScheme := cfg.AuthScheme
	if authScheme == "" {
		authScheme = AuthBearer
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:       baseURL,
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
		authScheme:    authScheme,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

type sendTextRequest struct {
	To     string   `json:"to"`
	Type   string   `json:"type"`
	Source string   `json:"source"`
	Text   textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendTextResponse struct {
	ID string `json:"id"`
}

// SendText delivers a text message to the given recipient. Success is
// HTTP 200/201; the returned id is the provider message id when the
// response carries one.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(text) == "" {
		return "", errors.New("whatsapp: recipient and text are required")
	}
	body, err := json.Marshal(sendTextRequest{
		To:     to,
		Type:   "text",
		Source: "external",
		Text:   textBody{Body: text},
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whatsapp: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var sendResp sendTextResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		// Some provider deployments return an empty 200 body.
		if err := json.Unmarshal(respBody, &sendResp); err != nil {
			c.logger.Warn("non-JSON send response", "status", resp.StatusCode)
		}
	}
	return sendResp.ID, nil
}

func (c *Client) authHeader() string {
	if c.authScheme == AuthToken {
		return c.token
	}
	return "Bearer " + c.token
}
