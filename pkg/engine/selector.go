package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/recording"
	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/template"
)

// Selector resolves an incoming request to the outcome the stub portal
// renders. Matching, hit counting and sequence advancement happen under the
// store's lock; recording and templating happen outside it.
type Selector struct {
	store     storage.Store
	fetcher   recording.Fetcher
	templates *template.Engine
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithFetcher sets the recorder used for recordable responses.
func WithFetcher(f recording.Fetcher) SelectorOption {
	return func(s *Selector) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithSelectorMetrics sets the metrics sink.
func WithSelectorMetrics(m *metrics.Metrics) SelectorOption {
	return func(s *Selector) {
		s.metrics = m
	}
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(log *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSelector creates a Selector over store.
func NewSelector(store storage.Store, opts ...SelectorOption) *Selector {
	s := &Selector{
		store:     store,
		fetcher:   recording.New(),
		templates: template.New(),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search resolves req. The returned outcome is one of NotFound,
// Unauthorized, Redirect, OK or Proxy.
func (s *Selector) Search(ctx context.Context, req *stub.Request) stub.Outcome {
	out := s.search(ctx, req)
	s.metrics.Outcome(out.Kind.String())
	return out
}

func (s *Selector) search(ctx context.Context, req *stub.Request) stub.Outcome {
	match, ok := s.store.Search(req)
	if !ok {
		if cfg, ok := s.proxyFor(req); ok {
			s.log.Debug("no stub matched, proxying", "method", methodOf(req), "url", req.FullURL(), "proxy", cfg.UUID)
			return stub.Proxied(cfg)
		}
		s.log.Debug("no stub matched", "method", methodOf(req), "url", req.FullURL())
		return stub.NotFound(notFoundMessage(req))
	}

	s.metrics.Hit(match.ResourceID)
	s.log.Debug("stub matched", "method", methodOf(req), "url", req.FullURL(), "index", match.ResourceID)

	if match.Unauthorized != "" {
		return stub.Unauthorized(match.ResourceID, match.Unauthorized)
	}

	resp := match.Response
	if resp.IsRedirect() {
		return stub.Outcome{
			Kind:       stub.OutcomeRedirect,
			Status:     resp.StatusCode(),
			Body:       resp.Body(),
			Headers:    withResourceID(maps.Clone(resp.Headers), match.ResourceID),
			Latency:    resp.Latency,
			ResourceID: match.ResourceID,
		}
	}

	if resp.IsRecordable() {
		s.record(ctx, req, resp, match.ResourceID)
	}

	body := s.templates.Process(resp.Body(), match.Captures)
	headers := s.templates.ProcessHeaders(resp.Headers, match.Captures)
	return stub.Outcome{
		Kind:       stub.OutcomeOK,
		Status:     resp.StatusCode(),
		Body:       body,
		Headers:    withResourceID(headers, match.ResourceID),
		Latency:    resp.Latency,
		ResourceID: match.ResourceID,
	}
}

// record fetches the upstream response named by resp's body and keeps it as
// the body for later hits. On failure the placeholder body stays, so the next
// hit tries again.
func (s *Selector) record(ctx context.Context, req *stub.Request, resp *stub.Response, resourceID int) {
	source := strings.TrimSpace(resp.Body())
	rec, err := s.fetcher.Fetch(ctx, req, source)
	if err != nil {
		s.metrics.Recording("error")
		s.log.Warn("could not record from upstream, serving stubbed body",
			"url", recording.TargetURL(source, req),
			"index", resourceID,
			"error", err,
		)
		return
	}
	resp.SetBody(string(rec.Body))
	s.metrics.Recording("ok")
	s.log.Info("recorded upstream response",
		"url", rec.URL,
		"index", resourceID,
		"status", rec.StatusCode,
	)
}

// proxyFor returns the proxy config the request selects, if any are
// configured. An unknown name selects the default config.
func (s *Selector) proxyFor(req *stub.Request) (*stub.ProxyConfig, bool) {
	name := strings.TrimSpace(req.Header(stub.HeaderProxyConfig))
	if name != "" && name != stub.DefaultProxyUUID {
		if cfg, ok := s.store.ProxyConfig(name); ok {
			return cfg, true
		}
		s.log.Warn("requested proxy config not found, using default",
			"proxy", name,
			"url", req.FullURL(),
		)
	}
	return s.store.ProxyConfig(stub.DefaultProxyUUID)
}

func withResourceID(headers map[string]string, resourceID int) map[string]string {
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers[stub.HeaderResourceID] = strconv.Itoa(resourceID)
	return headers
}

func methodOf(req *stub.Request) string {
	if len(req.Methods) == 0 {
		return ""
	}
	return req.Methods[0]
}

// notFoundMessage describes the request that nothing matched.
func notFoundMessage(req *stub.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(404) Nothing found for %s request at URI %s", methodOf(req), req.FullURL())
	if req.HasBody() {
		fmt.Fprintf(&b, "\n\t With post data: %s", req.Body())
	}
	if len(req.Headers) > 0 {
		fmt.Fprintf(&b, "\n\t With headers: %v", req.Headers)
	}
	if len(req.Query) > 0 {
		fmt.Fprintf(&b, "\n\t With query params: %v", req.Query)
	}
	return b.String()
}
