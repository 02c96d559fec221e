// Package recording fetches real upstream responses for stubs whose response
// body names a URL to record from.
package recording

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

// Fetcher retrieves an upstream response on behalf of a stub.
type Fetcher interface {
	Fetch(ctx context.Context, req *stub.Request, baseURL string) (*Recording, error)
}

// Recording is a captured upstream response.
type Recording struct {
	URL        string        `json:"url"`
	Method     string        `json:"method"`
	StatusCode int           `json:"statusCode"`
	Headers    http.Header   `json:"headers"`
	Body       []byte        `json:"body,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Recorder issues outbound requests with the incoming request's method,
// headers and body. Transport errors are returned to the caller unchanged
// apart from wrapping; there are no retries.
type Recorder struct {
	client *http.Client
	log    *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClient sets the HTTP client used for outbound requests.
func WithClient(c *http.Client) Option {
	return func(r *Recorder) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Recorder using the default transport.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		client: &http.Client{},
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Fetcher = (*Recorder)(nil)

// Fetch sends req to baseURL with the request's path and query appended.
func (r *Recorder) Fetch(ctx context.Context, req *stub.Request, baseURL string) (*Recording, error) {
	target := TargetURL(baseURL, req)
	method := http.MethodGet
	if len(req.Methods) > 0 {
		method = req.Methods[0]
	}

	var body io.Reader
	if req.HasBody() {
		body = strings.NewReader(req.Body())
	}
	outReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build recording request: %w", err)
	}
	for k, v := range req.Headers {
		switch k {
		case "host", "content-length":
			continue
		case "accept-encoding":
			// Left to the transport so the recorded body is stored decoded.
			continue
		}
		outReq.Header.Set(k, v)
	}
	httputil.RemoveHopByHopHeaders(outReq.Header)

	start := time.Now()
	resp, err := r.client.Do(outReq)
	if err != nil {
		return nil, fmt.Errorf("failed to record from %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read recorded response from %s: %w", target, err)
	}

	rec := &Recording{
		URL:        target,
		Method:     method,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       buf.Bytes(),
		Duration:   time.Since(start),
	}
	r.log.Debug("recorded upstream response", "url", target, "status", rec.StatusCode, "bytes", len(rec.Body))
	return rec, nil
}

// TargetURL joins a recording base URL with the request's path and query.
func TargetURL(baseURL string, req *stub.Request) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path := req.FullURL()
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
