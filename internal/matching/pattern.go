package matching

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Pattern is a compiled stub value. A Pattern whose source is not a valid
// regular expression matches by literal equality only.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// Source returns the pattern text the Pattern was compiled from.
func (p *Pattern) Source() string {
	return p.source
}

// Literal reports whether the pattern fell back to literal matching.
func (p *Pattern) Literal() bool {
	return p.re == nil
}

// Match reports whether value satisfies the pattern. On a regex match the
// returned slice holds the whole match followed by each capture group.
func (p *Pattern) Match(value string) ([]string, bool) {
	if p.re == nil {
		return nil, p.source == value
	}
	groups := p.re.FindStringSubmatch(value)
	if groups == nil {
		return nil, false
	}
	return groups, true
}

// MatchInto matches value and records each group as name.N in captures.
func (p *Pattern) MatchInto(value, name string, captures Captures) bool {
	groups, ok := p.Match(value)
	if !ok {
		return false
	}
	if captures != nil {
		for i, g := range groups {
			captures[name+"."+strconv.Itoa(i)] = g
		}
	}
	return true
}

// PatternCache compiles and memoizes patterns by their source text.
// Entries are never evicted.
type PatternCache struct {
	mu       sync.RWMutex
	patterns map[string]*Pattern
}

// NewPatternCache creates an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{patterns: make(map[string]*Pattern)}
}

// Compile returns the cached Pattern for source, compiling it on first use.
func (c *PatternCache) Compile(source string) *Pattern {
	c.mu.RLock()
	p, ok := c.patterns[source]
	c.mu.RUnlock()
	if ok {
		return p
	}

	p = compile(source)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.patterns[source]; ok {
		return existing
	}
	c.patterns[source] = p
	return p
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patterns)
}

var defaultPatterns = NewPatternCache()

// Compile compiles source through the process-wide pattern cache.
func Compile(source string) *Pattern {
	return defaultPatterns.Compile(source)
}

func compile(source string) *Pattern {
	re, err := regexp.Compile("(?m)" + source)
	if err != nil {
		return &Pattern{source: source}
	}
	// Unanchored patterns must cover the whole value.
	if !strings.HasPrefix(source, "^") && !endsWithAnchor(source) {
		re = regexp.MustCompile(`(?m)\A(?:` + source + `)\z`)
	}
	return &Pattern{source: source, re: re}
}

// endsWithAnchor reports whether source ends in a "$" that is not escaped.
func endsWithAnchor(source string) bool {
	if !strings.HasSuffix(source, "$") {
		return false
	}
	slashes := 0
	for i := len(source) - 2; i >= 0 && source[i] == '\\'; i-- {
		slashes++
	}
	return slashes%2 == 0
}
