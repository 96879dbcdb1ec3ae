// Package canvas talks to an Excalidraw-compatible canvas server and runs the
// diagram review that annotates a candidate's architecture sketch in place.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin wrapper over the canvas element API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Element is one canvas shape. The schema is open-ended, so elements stay as
// raw maps and patches merge shallowly over them.
type Element = map[string]any

type elementsEnvelope struct {
	Elements []Element `json:"elements"`
}

// GetElements fetches every element currently on the canvas.
func (c *Client) GetElements(ctx context.Context) ([]Element, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/elements", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching elements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var env elementsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding elements: %w", err)
	}
	return env.Elements, nil
}

// UpdateElement replaces the element with id by the given (already merged)
// element.
func (c *Client) UpdateElement(ctx context.Context, id string, el Element) error {
	return c.send(ctx, http.MethodPut, c.baseURL+"/api/elements/"+id, el)
}

// CreateElement adds a new element to the canvas.
func (c *Client) CreateElement(ctx context.Context, el Element) error {
	return c.send(ctx, http.MethodPost, c.baseURL+"/api/elements", el)
}

func (c *Client) send(ctx context.Context, method, url string, el Element) error {
	body, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("marshaling element: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sending element: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("canvas api error %d: %s", resp.StatusCode, string(body))
}
