// Package proxy forwards requests that no stub matched to the upstream named
// by a proxy config.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/stub"
)

// DefaultMaxBodySize is the maximum upstream response body relayed (10MB).
const DefaultMaxBodySize = 10 * 1024 * 1024

// ProxiedResponse is an upstream response with timing information.
type ProxiedResponse struct {
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	RequestUUID  string
	ResponseUUID string
}

// Proxy forwards requests to proxy config endpoints.
type Proxy struct {
	client  *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
	newUUID func() string
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithClient sets the HTTP client used for forwarding.
func WithClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Proxy) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Proxy) {
		p.metrics = m
	}
}

// New creates a Proxy.
func New(opts ...Option) *Proxy {
	p := &Proxy{
		client: &http.Client{
			// Redirects are relayed to the client, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:     logging.Nop(),
		newUUID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Forward sends r, with the already-read body, to cfg's endpoint and returns
// the upstream response.
func (p *Proxy) Forward(ctx context.Context, r *http.Request, body []byte, cfg *stub.ProxyConfig) (*ProxiedResponse, error) {
	start := time.Now()
	target := strings.TrimRight(cfg.Endpoint(), "/") + r.URL.RequestURI()

	outReq, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy request: %w", err)
	}

	httputil.CopyHeaders(outReq.Header, r.Header)
	httputil.RemoveHopByHopHeaders(outReq.Header)
	outReq.Header.Del(stub.HeaderProxyConfig)
	if cfg.Strategy == stub.ProxyAdditive {
		for k, v := range cfg.Headers {
			outReq.Header.Set(k, v)
		}
	}
	requestUUID := p.newUUID()
	outReq.Header.Set(stub.HeaderProxyRequestUUID, requestUUID)
	outReq.Header.Set("X-Forwarded-For", r.RemoteAddr)
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := p.client.Do(outReq)
	if err != nil {
		p.metrics.Proxy(cfg.UUID, "error")
		return nil, fmt.Errorf("failed to proxy %s %s to %s: %w", r.Method, r.URL.RequestURI(), target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		p.metrics.Proxy(cfg.UUID, "error")
		return nil, fmt.Errorf("failed to read proxied response from %s: %w", target, err)
	}

	headers := resp.Header.Clone()
	httputil.RemoveHopByHopHeaders(headers)
	headers.Del("Content-Length")

	pr := &ProxiedResponse{
		StatusCode:   resp.StatusCode,
		Headers:      headers,
		Body:         respBody,
		Duration:     time.Since(start),
		RequestUUID:  requestUUID,
		ResponseUUID: p.newUUID(),
	}
	p.metrics.Proxy(cfg.UUID, "ok")
	p.log.Debug("proxied request",
		"proxy", cfg.UUID,
		"method", r.Method,
		"url", target,
		"status", pr.StatusCode,
		"duration", pr.Duration,
	)
	return pr, nil
}

// ServeProxy forwards r and writes the upstream response to w. A transport
// failure is written as a 500 carrying the error text.
func (p *Proxy) ServeProxy(w http.ResponseWriter, r *http.Request, body []byte, cfg *stub.ProxyConfig) int {
	pr, err := p.Forward(r.Context(), r, body, cfg)
	if err != nil {
		p.log.Warn("proxy request failed", "proxy", cfg.UUID, "method", r.Method, "url", r.URL.RequestURI(), "error", err)
		httputil.WriteInternalError(w, err.Error())
		return http.StatusInternalServerError
	}

	httputil.CopyHeaders(w.Header(), pr.Headers)
	w.Header().Set(stub.HeaderProxyRequestUUID, pr.RequestUUID)
	w.Header().Set(stub.HeaderProxyResponseUUID, pr.ResponseUUID)
	w.WriteHeader(pr.StatusCode)
	_, _ = w.Write(pr.Body)
	return pr.StatusCode
}
