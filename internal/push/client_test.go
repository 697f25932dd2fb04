package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newTestClient(t *testing.T, status int, respBody string) (*Client, *httptest.Server, chan capturedRequest) {
	t.Helper()
	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		captured <- capturedRequest{path: r.URL.Path, headers: r.Header.Clone(), body: body}
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)

	tokens := NewTokenSource(newTestKey(t), "KEY123", "TEAM456", time.Hour)
	client := NewClient(tokens, "com.example.claudiator",
		WithHTTPClient(srv.Client()),
		WithBaseURLs(srv.URL+"/prod", srv.URL+"/sandbox"),
	)
	return client, srv, captured
}

func TestClient_Send(t *testing.T) {
	ctx := context.Background()
	msg := Message{
		Title:          "Fix login",
		Body:           "Session stopped: done",
		CollapseID:     strings.Repeat("s", 80),
		NotificationID: "n-1",
		SessionID:      "sess-1",
		DeviceID:       "dev-1",
	}

	t.Run("sends headers and payload", func(t *testing.T) {
		client, _, captured := newTestClient(t, http.StatusOK, "")

		res := client.Send(ctx, "abcdef0123456789", false, msg)
		assert.Equal(t, OutcomeSuccess, res.Outcome)

		req := <-captured
		assert.Equal(t, "/prod/3/device/abcdef0123456789", req.path)
		assert.True(t, strings.HasPrefix(req.headers.Get("authorization"), "bearer "))
		assert.Equal(t, "com.example.claudiator", req.headers.Get("apns-topic"))
		assert.Equal(t, "alert", req.headers.Get("apns-push-type"))
		assert.Equal(t, "10", req.headers.Get("apns-priority"))
		assert.Len(t, req.headers.Get("apns-collapse-id"), 64)

		aps := req.body["aps"].(map[string]any)
		alert := aps["alert"].(map[string]any)
		assert.Equal(t, "Fix login", alert["title"])
		assert.Equal(t, "Session stopped: done", alert["body"])
		assert.Equal(t, "default", aps["sound"])
		assert.EqualValues(t, 1, aps["content-available"])
		assert.Equal(t, "n-1", req.body["notification_id"])
		assert.Equal(t, "sess-1", req.body["session_id"])
		assert.Equal(t, "dev-1", req.body["device_id"])
	})

	t.Run("sandbox tokens use the sandbox host", func(t *testing.T) {
		client, _, captured := newTestClient(t, http.StatusOK, "")
		client.Send(ctx, "tok", true, msg)
		assert.Equal(t, "/sandbox/3/device/tok", (<-captured).path)
	})

	tests := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
		hasErr  bool
	}{
		{"gone", http.StatusGone, `{"reason":"Unregistered"}`, OutcomeGone, false},
		{"auth error", http.StatusForbidden, `{"reason":"InvalidProviderToken"}`, OutcomeAuthError, true},
		{"throttled", http.StatusTooManyRequests, `{"reason":"TooManyRequests"}`, OutcomeRetry, false},
		{"unavailable", http.StatusServiceUnavailable, "", OutcomeRetry, false},
		{"bad token", http.StatusBadRequest, `{"reason":"BadDeviceToken"}`, OutcomeError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, captured := newTestClient(t, tt.status, tt.body)
			res := client.Send(ctx, "tok", false, msg)
			<-captured

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.status, res.Status)
			if tt.hasErr {
				require.Error(t, res.Err)
				assert.Contains(t, res.Err.Error(), tt.body)
			}
		})
	}

	t.Run("transport failure is an error", func(t *testing.T) {
		client, srv, _ := newTestClient(t, http.StatusOK, "")
		srv.Close()
		res := client.Send(ctx, "tok", false, msg)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Error(t, res.Err)
	})
}
