package matching

import (
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/getmockd/stubd/pkg/stub"
)

// Captures maps template token names such as url.1 or query.id.0 to the
// values captured while matching.
type Captures map[string]string

// Token names for the sources of captured values.
const (
	TokenURL     = "url"
	TokenHeaders = "headers"
	TokenQuery   = "query"
	TokenPost    = "post"
)

// subTypePattern extracts the media subtype, honoring structured suffixes
// such as application/vnd.api+json.
var subTypePattern = regexp.MustCompile(`/(?:.*\+)?(\w*);?`)

// Matcher compares stubbed requests with asserting requests.
type Matcher struct {
	patterns *PatternCache
}

// NewMatcher creates a Matcher that compiles patterns through cache.
// A nil cache uses the process-wide one.
func NewMatcher(cache *PatternCache) *Matcher {
	if cache == nil {
		cache = defaultPatterns
	}
	return &Matcher{patterns: cache}
}

// Matches reports whether asserting satisfies every rule of stubbed. Values
// captured along the way are written into captures, which may be nil.
func (m *Matcher) Matches(stubbed, asserting *stub.Request, captures Captures) bool {
	if stubbed == nil || asserting == nil {
		return false
	}
	if !m.stringsMatch(stubbed.URL, asserting.URL, TokenURL, captures) {
		return false
	}
	if !MethodsIntersect(stubbed.Methods, asserting.Methods) {
		return false
	}
	if !m.bodiesMatch(stubbed, asserting, captures) {
		return false
	}
	if !m.headersMatch(stubbed.Headers, asserting.Headers, captures) {
		return false
	}
	return m.mapsMatch(stubbed.Query, asserting.Query, TokenQuery, captures)
}

// MethodsIntersect reports whether any asserting method is in the stubbed set.
// An empty stubbed set accepts every method.
func MethodsIntersect(stubbed, asserting []string) bool {
	if len(stubbed) == 0 {
		return true
	}
	for _, a := range asserting {
		if slices.ContainsFunc(stubbed, func(s string) bool { return strings.EqualFold(s, a) }) {
			return true
		}
	}
	return false
}

// headersMatch ignores authorization pseudo-headers, which gate access after
// a match rather than take part in it.
func (m *Matcher) headersMatch(stubbed, asserting map[string]string, captures Captures) bool {
	if len(stubbed) == 0 {
		return true
	}
	filtered := maps.Clone(stubbed)
	maps.DeleteFunc(filtered, func(k, _ string) bool { return stub.IsAuthorizationHeader(k) })
	return m.mapsMatch(filtered, asserting, TokenHeaders, captures)
}

// mapsMatch requires every stubbed key to be present in asserting with a
// matching value. Extra asserting keys are ignored.
func (m *Matcher) mapsMatch(stubbed, asserting map[string]string, name string, captures Captures) bool {
	if len(stubbed) == 0 {
		return true
	}
	if len(asserting) == 0 {
		return false
	}
	for key, want := range stubbed {
		got, ok := asserting[key]
		if !ok {
			return false
		}
		if isBracketed(want) {
			if !bracketsEqual(want, got) {
				return false
			}
			continue
		}
		if !m.stringsMatch(want, got, name+"."+key, captures) {
			return false
		}
	}
	return true
}

// stringsMatch matches an unset stubbed value against anything and an unset
// asserting value against nothing.
func (m *Matcher) stringsMatch(stubbed, asserting, token string, captures Captures) bool {
	if stubbed == "" {
		return true
	}
	if asserting == "" {
		return false
	}
	return m.patterns.Compile(stubbed).MatchInto(asserting, token, captures) || stubbed == asserting
}

func (m *Matcher) bodiesMatch(stubbed, asserting *stub.Request, captures Captures) bool {
	if !stubbed.HasBody() {
		return true
	}
	want, got := stubbed.Body(), asserting.Body()
	if got == "" {
		return false
	}

	switch mediaSubType(asserting.Header(stub.HeaderContentType)) {
	case "json":
		return m.jsonMatch(want, got, captures)
	case "xml":
		return m.xmlMatch(want, got, captures)
	}
	return m.stringsMatch(want, got, TokenPost, captures)
}

func mediaSubType(contentType string) string {
	if contentType == "" {
		return ""
	}
	groups := subTypePattern.FindStringSubmatch(strings.ToLower(contentType))
	if groups == nil {
		return ""
	}
	return groups[1]
}

func isBracketed(v string) bool {
	return (strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]")) ||
		(strings.HasPrefix(v, "%5B") && strings.HasSuffix(v, "%5D"))
}

// bracketsEqual compares bracketed list values as opaque strings. A stubbed
// value written in its URL-encoded form is decoded before comparison.
func bracketsEqual(stubbed, asserting string) bool {
	if stubbed == asserting {
		return true
	}
	if strings.HasPrefix(stubbed, "%5B") {
		return decodeBrackets(stubbed) == asserting
	}
	return false
}

func decodeBrackets(v string) string {
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
