// Package client provides a Go client for the Overcast overlay server:
// an HTTP producer client for registering and triggering overlays, and a
// websocket display client for receiving state snapshots.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

// OverlayDefinition mirrors the server's registration payload.
type OverlayDefinition struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Config    any    `json:"config,omitempty"`
	Layout    string `json:"layout,omitempty"`
	StaticDir string `json:"static_dir,omitempty"`
}

// ActiveOverlay is one on-screen overlay instance.
type ActiveOverlay struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Layout  string          `json:"layout"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Snapshot is the layout-partitioned state pushed to displays.
type Snapshot struct {
	Fullscreen []ActiveOverlay `json:"fullscreen"`
	Center     []ActiveOverlay `json:"center"`
	Right      []ActiveOverlay `json:"right"`
	Left       []ActiveOverlay `json:"left"`
}

// RegisterResult reports per-definition outcomes of a batch registration.
type RegisterResult struct {
	Accepted []string `json:"accepted"`
	Rejected []struct {
		Name string `json:"name"`
		Err  string `json:"error"`
	} `json:"rejected,omitempty"`
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds one or more overlay definitions. Rejected entries do not
// fail the call; inspect the result.
func (c *Client) Register(ctx context.Context, defs ...OverlayDefinition) (RegisterResult, error) {
	resp, err := c.postJSON(ctx, "/api/overlays", defs)
	if err != nil {
		return RegisterResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return RegisterResult{}, fmt.Errorf("register failed: %d", resp.StatusCode)
	}
	var out RegisterResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

// Show triggers the named overlay. A nil payload shows it with the
// definition's own config.
func (c *Client) Show(ctx context.Context, name string, payload any) error {
	return c.trigger(ctx, name, "show", payload)
}

// Hide removes every active instance of the named overlay.
func (c *Client) Hide(ctx context.Context, name string) error {
	return c.trigger(ctx, name, "hide", nil)
}

// End removes one active instance, matching by id first and falling back to
// name. The name fallback emits overlay:<name>:end on the server bus.
func (c *Client) End(ctx context.Context, id, name string, payload any) error {
	body := map[string]any{"id": id, "name": name}
	if payload != nil {
		body["payload"] = payload
	}
	resp, err := c.postJSON(ctx, "/api/overlays/end", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("end failed: %d", resp.StatusCode)
	}
	return nil
}

// State fetches the current layout-partitioned snapshot.
func (c *Client) State(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/state", nil)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("state failed: %d", resp.StatusCode)
	}
	var out Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

// ClearState removes every active overlay.
func (c *Client) ClearState(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/state", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("clear state failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) trigger(ctx context.Context, name, action string, payload any) error {
	endpoint := "/api/overlays/" + url.PathEscape(name) + "/" + action
	var resp *http.Response
	var err error
	if payload != nil {
		resp, err = c.postJSON(ctx, endpoint, payload)
	} else {
		resp, err = c.post(ctx, endpoint)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%s %s failed: %d", action, name, resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}

func (c *Client) post(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.HTTP.Do(req)
}
