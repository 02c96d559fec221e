package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		value   string
		want    bool
		groups  []string
	}{
		{name: "full match required", pattern: `/item/\d+`, value: "/item/12", want: true, groups: []string{"/item/12"}},
		{name: "partial value rejected", pattern: `/item/\d+`, value: "/item/12/extra", want: false},
		{name: "leading caret searches", pattern: `^/item/\d+`, value: "/item/12/extra", want: true, groups: []string{"/item/12"}},
		{name: "trailing dollar searches", pattern: `\d+$`, value: "/item/12", want: true, groups: []string{"12"}},
		{name: "escaped dollar is literal", pattern: `/price/\d+\$`, value: "/price/10$", want: true, groups: []string{"/price/10$"}},
		{name: "escaped dollar still needs full match", pattern: `/price/\d+\$`, value: "x/price/10$", want: false},
		{name: "dollar after escaped backslash anchors", pattern: `\d+\\$`, value: `/a/12\`, want: true, groups: []string{`12\`}},
		{name: "multiline anchors per line", pattern: `^second$`, value: "first\nsecond\nthird", want: true, groups: []string{"second"}},
		{name: "capture groups", pattern: `/(\w+)/(\d+)`, value: "/item/7", want: true, groups: []string{"/item/7", "item", "7"}},
		{name: "invalid regex falls back to literal", pattern: `[unclosed`, value: `[unclosed`, want: true},
		{name: "literal fallback is exact", pattern: `[unclosed`, value: `[unclosed `, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPatternCache().Compile(tt.pattern)
			groups, ok := p.Match(tt.value)
			assert.Equal(t, tt.want, ok)
			if tt.groups != nil {
				assert.Equal(t, tt.groups, groups)
			}
		})
	}
}

func TestPattern_LiteralFallback(t *testing.T) {
	p := Compile(`a)|(b`)
	assert.True(t, p.Literal())
	assert.Equal(t, `a)|(b`, p.Source())

	_, ok := p.Match("a")
	assert.False(t, ok)
}

func TestPatternCache_Memoizes(t *testing.T) {
	cache := NewPatternCache()
	first := cache.Compile(`^/a/(\d+)$`)
	second := cache.Compile(`^/a/(\d+)$`)

	require.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())

	cache.Compile(`/b`)
	assert.Equal(t, 2, cache.Len())
}

func TestPattern_MatchInto(t *testing.T) {
	captures := Captures{}
	ok := Compile(`/users/(\d+)/orders/(\d+)`).MatchInto("/users/3/orders/9", TokenURL, captures)

	require.True(t, ok)
	assert.Equal(t, Captures{
		"url.0": "/users/3/orders/9",
		"url.1": "3",
		"url.2": "9",
	}, captures)

	assert.True(t, Compile(`/x`).MatchInto("/x", TokenURL, nil))
}
