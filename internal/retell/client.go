// Package retell talks to the voice-call provider: fetching authoritative call
// records and verifying webhook signatures.
package retell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API credential is present. Fetches are skipped
// entirely when it is not.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetCall fetches the authoritative record for a call. Callers treat a nil
// result as an empty slot; fetch failure is not fatal to them.
func (c *Client) GetCall(ctx context.Context, callID string) (map[string]any, error) {
	url := fmt.Sprintf("%s/v2/get-call/%s", c.baseURL, callID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("unmarshal call record: %w", err)
	}
	return record, nil
}
