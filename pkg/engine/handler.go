// Stub portal HTTP handler.

package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/proxy"
	"github.com/getmockd/stubd/pkg/stub"
)

// Handler serves the stubs portal. It converts each incoming request into a
// stub.Request, resolves it with the Selector and renders the outcome.
type Handler struct {
	selector    *Selector
	proxy       *proxy.Proxy
	log         *slog.Logger
	maxBodySize int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithProxy sets the proxy used for Proxy outcomes.
func WithProxy(p *proxy.Proxy) HandlerOption {
	return func(h *Handler) {
		if p != nil {
			h.proxy = p
		}
	}
}

// WithHandlerLogger sets the operational logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMaxBodySize limits the request body size. Zero or less keeps the default.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler creates a Handler over selector.
func NewHandler(selector *Selector, opts ...HandlerOption) *Handler {
	h := &Handler{
		selector:    selector,
		log:         logging.Nop(),
		maxBodySize: config.DefaultMaxRequestBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.proxy == nil {
		h.proxy = proxy.New(proxy.WithLogger(h.log))
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// MaxBytesReader fails the read instead of truncating like LimitReader.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.log.Warn("request body too large", "url", r.URL.Path, "limit", h.maxBodySize)
			httputil.WriteText(w, http.StatusRequestEntityTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.log.Warn("failed to read request body", "url", r.URL.Path, "error", err)
	}

	out := h.selector.Search(r.Context(), NewStubRequest(r, body))

	switch out.Kind {
	case stub.OutcomeNotFound:
		httputil.WriteNotFound(w, out.Body)
	case stub.OutcomeUnauthorized:
		httputil.WriteText(w, http.StatusUnauthorized, out.Body)
	case stub.OutcomeProxy:
		h.proxy.ServeProxy(w, r, body, out.Proxy)
	case stub.OutcomeRedirect:
		h.writeRedirect(r.Context(), w, out)
	default:
		h.writeOK(r.Context(), w, out)
	}
}

// writeRedirect sends status and headers first and only then waits out the
// latency before the body.
func (h *Handler) writeRedirect(ctx context.Context, w http.ResponseWriter, out stub.Outcome) {
	delay, err := out.Delay()
	if err != nil {
		h.log.Error("invalid latency", "index", out.ResourceID, "error", err)
		httputil.WriteInternalError(w, err.Error())
		return
	}

	setHeaders(w.Header(), out.Headers)
	w.Header().Set("Connection", "close")
	w.WriteHeader(out.Status)
	if err := sleepContext(ctx, delay); err != nil {
		return
	}
	if out.Body != "" {
		_, _ = io.WriteString(w, out.Body)
	}
}

func (h *Handler) writeOK(ctx context.Context, w http.ResponseWriter, out stub.Outcome) {
	delay, err := out.Delay()
	if err != nil {
		h.log.Error("invalid latency", "index", out.ResourceID, "error", err)
		httputil.WriteInternalError(w, err.Error())
		return
	}
	if err := sleepContext(ctx, delay); err != nil {
		h.log.Debug("client went away during latency", "index", out.ResourceID, "error", err)
		return
	}

	setHeaders(w.Header(), out.Headers)
	w.WriteHeader(out.Status)
	if out.Body != "" {
		_, _ = io.WriteString(w, out.Body)
	}
}

// NewStubRequest converts an incoming HTTP request into the descriptor the
// repository matches against. Header names are lower-cased and repeated
// values are joined with commas.
func NewStubRequest(r *http.Request, body []byte) *stub.Request {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}
	return &stub.Request{
		URL:      r.URL.Path,
		Methods:  []string{r.Method},
		Headers:  headers,
		Query:    stub.ParseQuery(r.URL.RawQuery),
		Post:     string(body),
		RawQuery: r.URL.RawQuery,
	}
}

func setHeaders(dst http.Header, headers map[string]string) {
	for name, value := range headers {
		dst.Set(name, value)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
