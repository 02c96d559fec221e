package stub

import (
	"fmt"
	"time"
)

// OutcomeKind tags the result of resolving an incoming request.
type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeUnauthorized
	OutcomeRedirect
	OutcomeOK
	OutcomeProxy
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeOK:
		return "ok"
	case OutcomeProxy:
		return "proxy"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the concrete answer for one incoming request.
type Outcome struct {
	Kind    OutcomeKind
	Status  int
	Body    string
	Headers map[string]string

	// Latency is copied from the resolved response for OK and Redirect.
	Latency string

	// ResourceID identifies the matched lifecycle, or -1 when none matched.
	ResourceID int

	// Proxy is set for OutcomeProxy.
	Proxy *ProxyConfig
}

// Delay parses the outcome's latency.
func (o Outcome) Delay() (time.Duration, error) {
	return ParseLatency(o.Latency)
}

// NotFound builds a 404 outcome with the given diagnostic.
func NotFound(message string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Status: 404, Body: message, ResourceID: -1}
}

// Unauthorized builds a 401 outcome with the given diagnostic.
func Unauthorized(resourceID int, message string) Outcome {
	return Outcome{Kind: OutcomeUnauthorized, Status: 401, Body: message, ResourceID: resourceID}
}

// Proxied builds an outcome that hands the request to an upstream endpoint.
func Proxied(cfg *ProxyConfig) Outcome {
	return Outcome{Kind: OutcomeProxy, ResourceID: -1, Proxy: cfg}
}
