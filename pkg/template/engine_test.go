package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngine_Process(t *testing.T) {
	values := map[string]string{
		"url.1":          "42",
		"query.page.0":   "3",
		"headers.x-id.1": "abc",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "single token", template: `{"id":"<% url.1 %>"}`, want: `{"id":"42"}`},
		{name: "no whitespace", template: "<%url.1%>", want: "42"},
		{name: "extra whitespace", template: "<%   query.page.0\t%>", want: "3"},
		{name: "dashed header token", template: "id=<% headers.x-id.1 %>", want: "id=abc"},
		{name: "multiple tokens", template: "<% url.1 %>/<% query.page.0 %>", want: "42/3"},
		{name: "unknown token untouched", template: "<% url.9 %>", want: "<% url.9 %>"},
		{name: "no tokens", template: "plain body", want: "plain body"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Process(tt.template, values))
		})
	}
}

func TestEngine_Process_NoValues(t *testing.T) {
	assert.Equal(t, "<% url.1 %>", New().Process("<% url.1 %>", nil))
}

func TestEngine_ProcessHeaders(t *testing.T) {
	headers := map[string]string{"location": "/items/<% url.1 %>", "x-static": "v"}

	got := New().ProcessHeaders(headers, map[string]string{"url.1": "7"})

	assert.Equal(t, map[string]string{"location": "/items/7", "x-static": "v"}, got)
	assert.Equal(t, "/items/<% url.1 %>", headers["location"])
	assert.Nil(t, New().ProcessHeaders(nil, nil))
}

func TestHasTokens(t *testing.T) {
	assert.True(t, HasTokens("file-<% url.1 %>.json"))
	assert.False(t, HasTokens("file.json"))
}
