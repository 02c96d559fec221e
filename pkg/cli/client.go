package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AdminClient talks to a running admin portal.
type AdminClient interface {
	// ListStubs returns every loaded stub.
	ListStubs() ([]StubSummary, error)
	// Stats returns hit counters keyed by resource id.
	Stats() (map[int]int64, error)
	// StatsCSV returns hit counters as resourceId,hits lines.
	StatsCSV() (string, error)
}

// StubSummary is the part of a listed stub the CLI prints.
type StubSummary struct {
	ResourceID  int    `json:"resourceid"`
	UUID        string `json:"uuid,omitempty"`
	Description string `json:"description,omitempty"`
	Request     struct {
		URL    string   `json:"url,omitempty"`
		Method []string `json:"method,omitempty"`
	} `json:"request"`
	Response []struct {
		Status int `json:"status"`
	} `json:"response"`
}

// Statuses returns the response statuses in sequence order.
func (s StubSummary) Statuses() []int {
	out := make([]int, 0, len(s.Response))
	for _, r := range s.Response {
		out = append(out, r.Status)
	}
	return out
}

// APIError represents an error response from the admin portal.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// adminClient implements AdminClient using HTTP.
type adminClient struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures an admin client.
type ClientOption func(*adminClient)

// WithTimeout sets the HTTP timeout for the client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *adminClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewAdminClient creates a new admin portal client.
// The baseURL should be the admin portal base URL (e.g., "http://localhost:8889").
func NewAdminClient(baseURL string, opts ...ClientOption) AdminClient {
	c := &adminClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *adminClient) ListStubs() ([]StubSummary, error) {
	body, err := c.get("/", "application/json")
	if err != nil {
		return nil, err
	}
	var stubs []StubSummary
	if err := json.Unmarshal(body, &stubs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return stubs, nil
}

func (c *adminClient) Stats() (map[int]int64, error) {
	body, err := c.get("/stats", "application/json")
	if err != nil {
		return nil, err
	}
	stats := make(map[int]int64)
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return stats, nil
}

func (c *adminClient) StatsCSV() (string, error) {
	body, err := c.get("/stats?format=csv", "text/csv")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *adminClient) get(path, accept string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			ErrorCode: "connection_error",
			Message:   fmt.Sprintf("cannot connect to admin portal at %s: %v", c.baseURL, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "http_error",
			Message:    fmt.Sprintf("admin portal returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return body, nil
}

// FormatConnectionError returns a user-friendly error message for connection errors.
func FormatConnectionError(err error) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.ErrorCode == "connection_error" {
		return fmt.Sprintf(`%s

Suggestions:
  • Start the server: stubd serve --data stubs.yaml
  • Check if the admin portal is running on the expected port
  • Point the CLI at it with --admin-url or STUBD_ADMIN_URL`, apiErr.Message)
	}
	return err.Error()
}
