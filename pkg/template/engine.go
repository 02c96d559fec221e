package template

import (
	"regexp"
	"strings"
)

// tokenRegex matches <% name %> tokens with optional whitespace.
var tokenRegex = regexp.MustCompile(`<%\s*([\w.\-]+)\s*%>`)

// Engine replaces template tokens with captured values. It holds no state and
// is safe for concurrent use.
type Engine struct{}

// New creates a template engine.
func New() *Engine {
	return &Engine{}
}

// Process replaces every token in template whose name is present in values.
func (e *Engine) Process(template string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(template, "<%") {
		return template
	}
	return tokenRegex.ReplaceAllStringFunc(template, func(match string) string {
		inner := tokenRegex.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		if v, ok := values[inner[1]]; ok {
			return v
		}
		return match
	})
}

// ProcessHeaders returns a copy of headers with tokens replaced in each value.
func (e *Engine) ProcessHeaders(headers, values map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = e.Process(v, values)
	}
	return out
}

// HasTokens reports whether s contains at least one token.
func HasTokens(s string) bool {
	return tokenRegex.MatchString(s)
}
