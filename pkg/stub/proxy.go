package stub

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultProxyUUID names the proxy config used when a request does not select one.
const DefaultProxyUUID = "default"

// Proxy headers. HeaderProxyConfig selects a proxy config by uuid on the
// incoming request; the uuid headers tag a forwarded round trip.
const (
	HeaderProxyConfig       = "x-stubd-proxy-config"
	HeaderProxyRequestUUID  = "x-stubd-proxy-request-uuid"
	HeaderProxyResponseUUID = "x-stubd-proxy-response-uuid"
)

// ProxyStrategy controls how a request is rewritten before forwarding.
type ProxyStrategy string

const (
	// ProxyAsIs forwards the request unchanged.
	ProxyAsIs ProxyStrategy = "as-is"
	// ProxyAdditive adds the configured headers to the forwarded request.
	ProxyAdditive ProxyStrategy = "additive"
)

// ProxyConfig describes an upstream that receives requests no stub matched.
type ProxyConfig struct {
	UUID        string            `json:"uuid" yaml:"uuid"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Strategy    ProxyStrategy     `json:"strategy" yaml:"strategy"`
	Properties  map[string]string `json:"properties" yaml:"properties"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Endpoint returns the upstream base URL.
func (p *ProxyConfig) Endpoint() string {
	return p.Properties["endpoint"]
}

// Validate checks the strategy and endpoint, filling in defaults.
func (p *ProxyConfig) Validate() error {
	if p.UUID == "" {
		p.UUID = DefaultProxyUUID
	}
	switch ProxyStrategy(strings.ToLower(string(p.Strategy))) {
	case "", ProxyAsIs:
		p.Strategy = ProxyAsIs
	case ProxyAdditive:
		p.Strategy = ProxyAdditive
	default:
		return fmt.Errorf("proxy config %q: unknown strategy %q", p.UUID, p.Strategy)
	}
	endpoint := p.Endpoint()
	if endpoint == "" {
		return fmt.Errorf("proxy config %q: endpoint is required", p.UUID)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy config %q: invalid endpoint %q", p.UUID, endpoint)
	}
	return nil
}
