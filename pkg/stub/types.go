// Package stub provides the request, response and lifecycle types that make up
// a stubbed HTTP interaction, plus the outcome variants produced when an
// incoming request is resolved against them.
package stub

import (
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Authorization pseudo-headers accepted in stubbed request headers. They are
// resolved at load time into the exact Authorization header value expected.
const (
	HeaderAuthorizationBasic  = "authorization-basic"
	HeaderAuthorizationBearer = "authorization-bearer"
	HeaderAuthorizationCustom = "authorization-custom"

	HeaderAuthorization = "authorization"
	HeaderContentType   = "content-type"
	HeaderLocation      = "location"
	HeaderResourceID    = "x-stubd-resource-id"
)

// ErrInvalidLatency is returned when a configured latency is not an integer
// number of milliseconds.
var ErrInvalidLatency = errors.New("invalid latency")

// AuthorizationType identifies the scheme a stubbed request requires.
type AuthorizationType int

const (
	AuthNone AuthorizationType = iota
	AuthBasic
	AuthBearer
	AuthCustom
)

// String returns the scheme name as it appears in the Authorization header.
func (t AuthorizationType) String() string {
	switch t {
	case AuthBasic:
		return "Basic"
	case AuthBearer:
		return "Bearer"
	case AuthCustom:
		return "Custom"
	default:
		return "None"
	}
}

// authorizationHeaders lists the pseudo-headers in lookup order.
var authorizationHeaders = []struct {
	name string
	kind AuthorizationType
}{
	{HeaderAuthorizationBasic, AuthBasic},
	{HeaderAuthorizationBearer, AuthBearer},
	{HeaderAuthorizationCustom, AuthCustom},
}

// IsAuthorizationHeader reports whether name is one of the authorization
// pseudo-headers. These never take part in generic header matching.
func IsAuthorizationHeader(name string) bool {
	for _, h := range authorizationHeaders {
		if h.name == name {
			return true
		}
	}
	return false
}

// Request describes either a stubbed request (values may be regular
// expressions) or an incoming request being asserted against stubs.
type Request struct {
	// URL is the stubbed URL pattern, or the path of an incoming request.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Methods is the set of accepted methods, upper-cased. Empty matches any.
	Methods []string `json:"method,omitempty" yaml:"method,omitempty"`

	// Headers are keyed by lower-cased header name.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Query holds query parameters by name.
	Query map[string]string `json:"query,omitempty" yaml:"query,omitempty"`

	// Post is the request body.
	Post string `json:"post,omitempty" yaml:"post,omitempty"`

	// File is body content loaded from a file. It wins over Post.
	File []byte `json:"-" yaml:"-"`

	// RawQuery is the undecoded query string of an incoming request.
	RawQuery string `json:"-" yaml:"-"`
}

// Normalize upper-cases methods and lower-cases header names in place.
func (r *Request) Normalize() *Request {
	for i, m := range r.Methods {
		r.Methods[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	if len(r.Headers) > 0 {
		headers := make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			headers[strings.ToLower(k)] = v
		}
		r.Headers = headers
	}
	return r
}

// Body returns the request body, preferring file content over Post.
func (r *Request) Body() string {
	if len(r.File) > 0 {
		return string(r.File)
	}
	return r.Post
}

// HasBody reports whether a body was stubbed or supplied.
func (r *Request) HasBody() bool {
	return len(r.File) > 0 || r.Post != ""
}

// Header returns the value of a header by case-insensitive name.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Authorization returns the authorization scheme this stubbed request
// requires along with the exact header value expected.
func (r *Request) Authorization() (AuthorizationType, string) {
	for _, h := range authorizationHeaders {
		if v, ok := r.Headers[h.name]; ok {
			return h.kind, v
		}
	}
	return AuthNone, ""
}

// Authorize compares the asserting request's Authorization header with the
// value this stubbed request requires. The comparison is whole-header
// equality. When access is denied the returned string explains why.
func (r *Request) Authorize(asserting *Request) (string, bool) {
	kind, expected := r.Authorization()
	if kind == AuthNone {
		return "", true
	}
	supplied := asserting.Header(HeaderAuthorization)
	if supplied == "" {
		return "You are not authorized to view this page without supplied 'Authorization' HTTP header", false
	}
	if supplied == expected {
		return "", true
	}
	if kind == AuthBasic {
		encoded := strings.TrimSpace(strings.TrimPrefix(supplied, "Basic "))
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			decoded = nil
		}
		return fmt.Sprintf("Unauthorized with supplied encoded credentials: '%s' which decodes to '%s'", encoded, decoded), false
	}
	return fmt.Sprintf("Unauthorized with supplied 'authorized' header value: '%s'", supplied), false
}

// RequiresAuthorization reports whether any authorization pseudo-header is set.
func (r *Request) RequiresAuthorization() bool {
	kind, _ := r.Authorization()
	return kind != AuthNone
}

// FullURL returns the path with the raw query string appended, if any.
func (r *Request) FullURL() string {
	if r.RawQuery == "" {
		return r.URL
	}
	return r.URL + "?" + r.RawQuery
}

// Fields returns the populated request fields keyed by lower-cased field name.
func (r *Request) Fields() map[string]any {
	fields := make(map[string]any)
	if r.URL != "" {
		fields["url"] = r.URL
	}
	if len(r.Methods) > 0 {
		fields["method"] = slices.Clone(r.Methods)
	}
	if len(r.Headers) > 0 {
		fields["headers"] = maps.Clone(r.Headers)
	}
	if len(r.Query) > 0 {
		fields["query"] = maps.Clone(r.Query)
	}
	if r.HasBody() {
		fields["post"] = r.Body()
	}
	return fields
}

// ParseQuery splits a raw query string into decoded parameters. Later
// occurrences of a key replace earlier ones, and bracketed values are kept
// byte-for-byte after decoding.
func ParseQuery(rawQuery string) map[string]string {
	params := make(map[string]string)
	if rawQuery == "" {
		return params
	}
	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		params[key] = value
	}
	return params
}

// Response is one canned response. Its body can be replaced once a recording
// has been fetched, so all body access goes through Body and SetBody.
type Response struct {
	// Status is the HTTP status code. Zero means 200.
	Status int

	// Headers are keyed by lower-cased header name.
	Headers map[string]string

	// File is body content loaded at configuration time. It wins over the body.
	File []byte

	// FilePath is the configured file reference, kept for rendering.
	FilePath string

	// Latency is the configured delay in milliseconds, validated at serve time.
	Latency string

	mu   sync.RWMutex
	body string
}

// NewResponse creates a response with the given status and body.
func NewResponse(status int, body string) *Response {
	return &Response{Status: status, body: body}
}

// Body returns the configured or recorded body, preferring file content.
func (r *Response) Body() string {
	if len(r.File) > 0 {
		return string(r.File)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.body
}

// SetBody replaces the body. Used to memoize a recorded upstream response.
func (r *Response) SetBody(body string) {
	r.mu.Lock()
	r.body = body
	r.mu.Unlock()
}

// StatusCode returns Status, defaulting to 200.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return 200
	}
	return r.Status
}

// Location returns the redirect target, if a location header is configured.
func (r *Response) Location() string {
	return r.Headers[HeaderLocation]
}

// IsRedirect reports whether the response carries a location header.
func (r *Response) IsRedirect() bool {
	return r.Location() != ""
}

// IsRecordable reports whether the body is a bare http(s) URL to be fetched
// and cached on first use.
func (r *Response) IsRecordable() bool {
	if len(r.File) > 0 {
		return false
	}
	r.mu.RLock()
	body := strings.TrimSpace(r.body)
	r.mu.RUnlock()
	if strings.ContainsAny(body, " \t\r\n") {
		return false
	}
	lower := strings.ToLower(body)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(body)
	return err == nil && u.Host != ""
}

// Delay parses Latency into a duration.
func (r *Response) Delay() (time.Duration, error) {
	return ParseLatency(r.Latency)
}

// Fields returns the populated response fields keyed by lower-cased field name.
func (r *Response) Fields() map[string]any {
	fields := map[string]any{"status": r.StatusCode()}
	if body := r.Body(); body != "" {
		fields["body"] = body
	}
	if r.FilePath != "" {
		fields["file"] = r.FilePath
	}
	if len(r.Headers) > 0 {
		fields["headers"] = maps.Clone(r.Headers)
	}
	if r.Latency != "" {
		fields["latency"] = r.Latency
	}
	return fields
}

// ParseLatency converts a millisecond latency string into a duration.
// An empty string means no delay.
func ParseLatency(latency string) (time.Duration, error) {
	latency = strings.TrimSpace(latency)
	if latency == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(latency, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: %q is not a number of milliseconds", ErrInvalidLatency, latency)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Lifecycle pairs one stubbed request with one or more responses served in
// sequence. Identity for matching is defined by Request alone.
type Lifecycle struct {
	// Description is free-form text shown by the admin portal.
	Description string

	// UUID optionally identifies the lifecycle for admin operations.
	UUID string

	// Request is the stubbed request.
	Request *Request

	// Responses holds one response, or a sequence served round-robin.
	Responses []*Response

	// ResourceID is the lifecycle's position in the repository.
	ResourceID int

	cursor int
}

// NextResponse returns the response for this hit and advances the sequence
// cursor, wrapping to the first response after the last. Callers must
// serialize calls for a given lifecycle.
func (l *Lifecycle) NextResponse() *Response {
	switch len(l.Responses) {
	case 0:
		return NewResponse(200, "")
	case 1:
		return l.Responses[0]
	}
	if l.cursor >= len(l.Responses) {
		l.cursor = 0
	}
	resp := l.Responses[l.cursor]
	l.cursor++
	if l.cursor == len(l.Responses) {
		l.cursor = 0
	}
	return resp
}

// IsSequenced reports whether more than one response is configured.
func (l *Lifecycle) IsSequenced() bool {
	return len(l.Responses) > 1
}

// Fields returns the lifecycle's populated fields keyed by lower-cased name.
func (l *Lifecycle) Fields() map[string]any {
	fields := map[string]any{"resourceid": l.ResourceID}
	if l.Description != "" {
		fields["description"] = l.Description
	}
	if l.UUID != "" {
		fields["uuid"] = l.UUID
	}
	if l.Request != nil {
		fields["request"] = l.Request.Fields()
	}
	responses := make([]map[string]any, 0, len(l.Responses))
	for _, r := range l.Responses {
		responses = append(responses, r.Fields())
	}
	fields["response"] = responses
	return fields
}
