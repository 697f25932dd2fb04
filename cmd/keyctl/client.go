package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
)

const requestTimeout = 10 * time.Second

// adminClient talks to the loopback-only admin API.
type adminClient struct {
	baseURL   string
	masterKey string
	http      *http.Client
}

func newAdminClient(baseURL, masterKey string) *adminClient {
	return &adminClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		masterKey: masterKey,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

func (c *adminClient) CreateKey(ctx context.Context, req model.CreateAPIKeyRequest) (*model.CreatedAPIKey, error) {
	var created model.CreatedAPIKey
	if err := c.do(ctx, http.MethodPost, "/admin/api-keys", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *adminClient) ListKeys(ctx context.Context) ([]model.APIKey, error) {
	var resp struct {
		Keys []model.APIKey `json:"keys"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/api-keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *adminClient) DeleteKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/api-keys/"+url.PathEscape(id), nil, nil)
}

func (c *adminClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.masterKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr httputil.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server returned %d %s: %s", resp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
