package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/actionsum/tasktrack/internal/activity"
)

// Client issues commands to a running tracker.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the command surface at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) Start(ctx context.Context, req StartRequest) (*Response, error) {
	return c.command(ctx, "start", req)
}

func (c *Client) Pause(ctx context.Context) (*Response, error) {
	return c.command(ctx, "pause", nil)
}

func (c *Client) Resume(ctx context.Context) (*Response, error) {
	return c.command(ctx, "resume", nil)
}

func (c *Client) Stop(ctx context.Context) (*Response, error) {
	return c.command(ctx, "stop", nil)
}

// Status returns the session snapshot.
func (c *Client) Status(ctx context.Context) (*activity.Status, error) {
	var st activity.Status
	if err := c.do(ctx, http.MethodGet, "/session/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) command(ctx context.Context, op string, body interface{}) (*Response, error) {
	var resp Response
	if err := c.do(ctx, http.MethodPost, "/session/"+op, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracker not reachable at %s (is `tasktrack run` active?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
