package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/relaydesk/warelay/pkg/logging"
)

// ErrAllCandidatesFailed means every configured endpoint/payload
// candidate was rejected. The reply is dropped; there is no retry.
var ErrAllCandidatesFailed = errors.New("whatsapp: all dispatch candidates failed")

// Candidate is one guess at the provider's send contract: an endpoint
// URL plus a payload builder, tried in fixed fallback order.
type Candidate struct {
	Name    string
	URL     string
	Payload func(to, text string) any
}

// Dispatcher attempts delivery through an ordered candidate list. It is
// a compatibility shim for an unverified provider contract, enabled by
// configuration; the single validated Client endpoint is the normal
// path. One attempt per candidate, first 2xx wins.
type Dispatcher struct {
	candidates []Candidate
	authHeader string
	httpClient *http.Client
	logger     *logging.Logger
}

// DispatcherConfig controls dispatcher construction.
type DispatcherConfig struct {
	Candidates []Candidate
	AuthHeader string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewDispatcher creates a Dispatcher over the given candidate list.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if len(cfg.Candidates) == 0 {
		return nil, errors.New("whatsapp: at least one dispatch candidate is required")
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
	return &Dispatcher{
		candidates: cfg.Candidates,
		authHeader: cfg.AuthHeader,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Dispatch tries each candidate in order and returns the name of the
// accepted one. Exhaustion returns ErrAllCandidatesFailed; the error is
// never escalated past logs and counters.
func (d *Dispatcher) Dispatch(ctx context.Context, to, text string) (string, error) {
	for _, cand := range d.candidates {
		if err := d.attempt(ctx, cand, to, text); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			d.logger.Warn("dispatch candidate rejected", "candidate", cand.Name, "error", err)
			continue
		}
		return cand.Name, nil
	}
	return "", ErrAllCandidatesFailed
}

// SendText implements MessageSender. The dispatcher never learns a
// provider message id, so the id is empty on success.
func (d *Dispatcher) SendText(ctx context.Context, to, text string) (string, error) {
	name, err := d.Dispatch(ctx, to, text)
	if err != nil {
		return "", err
	}
	d.logger.Info("dispatch candidate accepted", "candidate", name)
	return "", nil
}

func (d *Dispatcher) attempt(ctx context.Context, cand Candidate, to, text string) error {
	body, err := json.Marshal(cand.Payload(to, text))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cand.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authHeader != "" {
		req.Header.Set("Authorization", d.authHeader)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// DefaultCandidates returns the historical endpoint/payload guesses for
// the provider, in the order they are tried. This list exists because
// the real contract was never confirmed; reduce it to a single
// validated endpoint once it is.
func DefaultCandidates(phoneNumberID string) []Candidate {
	return []Candidate{
		{
			Name: "graph_cloud_api",
			URL:  fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", phoneNumberID),
			Payload: func(to, text string) any {
				return map[string]any{
					"messaging_product": "whatsapp",
					"to":                to,
					"text":              map[string]string{"body": text},
				}
			},
		},
		{
			Name: "smartflo_v1",
			URL:  "https://api.smartflo.ai/v1/messages",
			Payload: func(to, text string) any {
				return map[string]any{
					"to":   to,
					"type": "text",
					"text": map[string]string{"body": text},
				}
			},
		},
		{
			Name: "smartflo_send",
			URL:  "https://api.smartflo.ai/send",
			Payload: func(to, text string) any {
				return map[string]any{
					"phone":   to,
					"message": text,
				}
			},
		},
	}
}
