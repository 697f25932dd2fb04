package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/claudiator/server-go/internal/config"
	"github.com/claudiator/server-go/internal/util"
)

const (
	ProductionURL = "https://api.push.apple.com"
	SandboxURL    = "https://api.sandbox.push.apple.com"

	maxErrorBody = 4096
)

// Outcome classifies a single delivery attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeGone means the token is permanently invalid and should be deleted.
	OutcomeGone
	// OutcomeAuthError means the provider rejected our credentials.
	OutcomeAuthError
	// OutcomeRetry means the provider is throttling or unavailable.
	OutcomeRetry
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeGone:
		return "gone"
	case OutcomeAuthError:
		return "auth_error"
	case OutcomeRetry:
		return "retry"
	default:
		return "error"
	}
}

type Result struct {
	Outcome Outcome
	Status  int
	Reason  string
	Err     error
}

// Message is one alert addressed to a device token.
type Message struct {
	Title          string
	Body           string
	CollapseID     string
	NotificationID string
	SessionID      string
	DeviceID       string
}

type alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type aps struct {
	Alert            alert  `json:"alert"`
	Sound            string `json:"sound"`
	ContentAvailable int    `json:"content-available"`
}

type payload struct {
	APS            aps    `json:"aps"`
	NotificationID string `json:"notification_id"`
	SessionID      string `json:"session_id"`
	DeviceID       string `json:"device_id"`
}

type Client struct {
	http          *http.Client
	tokens        *TokenSource
	bundleID      string
	productionURL string
	sandboxURL    string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP/2 client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBaseURLs points the client at other hosts.
func WithBaseURLs(production, sandbox string) Option {
	return func(cl *Client) {
		cl.productionURL = production
		cl.sandboxURL = sandbox
	}
}

func NewClient(tokens *TokenSource, bundleID string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout:   config.APNsRequestTimeout,
			Transport: &http2.Transport{},
		},
		tokens:        tokens,
		bundleID:      bundleID,
		productionURL: ProductionURL,
		sandboxURL:    SandboxURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers one message to one device token.
func (c *Client) Send(ctx context.Context, deviceToken string, sandbox bool, msg Message) Result {
	jwt, err := c.tokens.Token()
	if err != nil {
		return Result{Outcome: OutcomeAuthError, Err: err}
	}

	body, err := json.Marshal(payload{
		APS: aps{
			Alert:            alert{Title: msg.Title, Body: msg.Body},
			Sound:            "default",
			ContentAvailable: 1,
		},
		NotificationID: msg.NotificationID,
		SessionID:      msg.SessionID,
		DeviceID:       msg.DeviceID,
	})
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	base := c.productionURL
	if sandbox {
		base = c.sandboxURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/3/device/"+deviceToken, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("authorization", "bearer "+jwt)
	req.Header.Set("apns-topic", c.bundleID)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("apns-priority", "10")
	req.Header.Set("content-type", "application/json")
	if msg.CollapseID != "" {
		req.Header.Set("apns-collapse-id", util.TruncateBytes(msg.CollapseID, config.MaxCollapseIDBytes))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().
			Err(err).
			Str("token_prefix", util.MaskToken(deviceToken, 8)).
			Dur("elapsed", elapsed).
			Msg("apns request failed")
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	res := classify(resp.StatusCode, respBody)

	log.Debug().
		Str("token_prefix", util.MaskToken(deviceToken, 8)).
		Int("status", resp.StatusCode).
		Str("outcome", res.Outcome.String()).
		Dur("elapsed", elapsed).
		Msg("apns response")

	return res
}

func classify(status int, body []byte) Result {
	var parsed struct {
		Reason string `json:"reason"`
	}
	_ = json.Unmarshal(body, &parsed)

	res := Result{Status: status, Reason: parsed.Reason}
	switch status {
	case http.StatusOK:
		res.Outcome = OutcomeSuccess
	case http.StatusGone:
		res.Outcome = OutcomeGone
	case http.StatusForbidden:
		res.Outcome = OutcomeAuthError
		res.Err = fmt.Errorf("apns auth error (%d): %s", status, body)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		res.Outcome = OutcomeRetry
	default:
		res.Outcome = OutcomeError
		res.Err = fmt.Errorf("apns error (%d): %s", status, body)
	}
	return res
}
