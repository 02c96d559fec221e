package stub

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_NextResponse_WrapsSequence(t *testing.T) {
	a, b, c := NewResponse(200, "A"), NewResponse(201, "B"), NewResponse(202, "C")
	lc := &Lifecycle{Request: &Request{URL: "/seq"}, Responses: []*Response{a, b, c}}

	var got []string
	for range 4 {
		got = append(got, lc.NextResponse().Body())
	}

	assert.Equal(t, []string{"A", "B", "C", "A"}, got)
	assert.True(t, lc.IsSequenced())
}

func TestLifecycle_NextResponse_SingleAndEmpty(t *testing.T) {
	single := &Lifecycle{Responses: []*Response{NewResponse(204, "")}}
	assert.Equal(t, 204, single.NextResponse().StatusCode())
	assert.Equal(t, 204, single.NextResponse().StatusCode())

	empty := &Lifecycle{}
	resp := empty.NextResponse()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Empty(t, resp.Body())
}

func TestResponse_IsRecordable(t *testing.T) {
	tests := []struct {
		name string
		body string
		file []byte
		want bool
	}{
		{name: "http url", body: "http://example.test", want: true},
		{name: "https url with path", body: "HTTPS://example.test/base", want: true},
		{name: "plain text", body: "hello", want: false},
		{name: "url inside sentence", body: "see http://example.test", want: false},
		{name: "scheme only", body: "http://", want: false},
		{name: "file wins", body: "http://example.test", file: []byte("content"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse(200, tt.body)
			r.File = tt.file
			assert.Equal(t, tt.want, r.IsRecordable())
		})
	}
}

func TestResponse_SetBodyClearsRecordable(t *testing.T) {
	r := NewResponse(200, "http://example.test")
	require.True(t, r.IsRecordable())

	r.SetBody(`{"recorded":true}`)

	assert.False(t, r.IsRecordable())
	assert.Equal(t, `{"recorded":true}`, r.Body())
}

func TestResponse_FileWinsOverBody(t *testing.T) {
	r := NewResponse(200, "inline")
	r.File = []byte("from file")
	assert.Equal(t, "from file", r.Body())
}

func TestParseLatency(t *testing.T) {
	tests := []struct {
		name    string
		latency string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty", latency: "", want: 0},
		{name: "millis", latency: "250", want: 250 * time.Millisecond},
		{name: "padded", latency: " 5 ", want: 5 * time.Millisecond},
		{name: "not a number", latency: "fast", wantErr: true},
		{name: "negative", latency: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLatency(tt.latency)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLatency))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	r := (&Request{
		Methods: []string{"get", " post"},
		Headers: map[string]string{"Content-Type": "application/json"},
	}).Normalize()

	assert.Equal(t, []string{"GET", "POST"}, r.Methods)
	assert.Equal(t, "application/json", r.Header("content-type"))
	assert.Equal(t, "application/json", r.Header("CONTENT-TYPE"))
}

func TestRequest_Authorization(t *testing.T) {
	r := &Request{Headers: map[string]string{HeaderAuthorizationBearer: "Bearer abc"}}
	kind, value := r.Authorization()
	assert.Equal(t, AuthBearer, kind)
	assert.Equal(t, "Bearer abc", value)
	assert.True(t, r.RequiresAuthorization())

	assert.False(t, (&Request{}).RequiresAuthorization())
	assert.True(t, IsAuthorizationHeader(HeaderAuthorizationCustom))
	assert.False(t, IsAuthorizationHeader(HeaderAuthorization))
}

func TestRequest_Authorize(t *testing.T) {
	basic := &Request{Headers: map[string]string{HeaderAuthorizationBasic: "Basic Ym9iOnNlY3JldA=="}}
	bearer := &Request{Headers: map[string]string{HeaderAuthorizationBearer: "Bearer abc"}}

	tests := []struct {
		name     string
		stubbed  *Request
		supplied string
		wantOK   bool
		wantMsg  string
	}{
		{name: "no requirement", stubbed: &Request{}, wantOK: true},
		{name: "missing header", stubbed: basic, wantMsg: "You are not authorized to view this page without supplied 'Authorization' HTTP header"},
		{name: "basic exact", stubbed: basic, supplied: "Basic Ym9iOnNlY3JldA==", wantOK: true},
		{name: "basic wrong", stubbed: basic, supplied: "Basic Ym9iOndyb25n", wantMsg: "Unauthorized with supplied encoded credentials: 'Ym9iOndyb25n' which decodes to 'bob:wrong'"},
		{name: "bearer wrong", stubbed: bearer, supplied: "Bearer xyz", wantMsg: "Unauthorized with supplied 'authorized' header value: 'Bearer xyz'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asserting := &Request{Headers: map[string]string{}}
			if tt.supplied != "" {
				asserting.Headers[HeaderAuthorization] = tt.supplied
			}
			msg, ok := tt.stubbed.Authorize(asserting)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestParseQuery(t *testing.T) {
	got := ParseQuery("id=1&type_name=%5B%22id%22,%22uuid%22%5D&id=2&flag")

	assert.Equal(t, "2", got["id"])
	assert.Equal(t, `["id","uuid"]`, got["type_name"])
	assert.Equal(t, "", got["flag"])
	assert.Empty(t, ParseQuery(""))
}

func TestRequest_FullURL(t *testing.T) {
	assert.Equal(t, "/a", (&Request{URL: "/a"}).FullURL())
	assert.Equal(t, "/a?b=1", (&Request{URL: "/a", RawQuery: "b=1"}).FullURL())
}

func TestProxyConfig_Validate(t *testing.T) {
	cfg := &ProxyConfig{Properties: map[string]string{"endpoint": "https://upstream.test"}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultProxyUUID, cfg.UUID)
	assert.Equal(t, ProxyAsIs, cfg.Strategy)

	bad := &ProxyConfig{UUID: "x", Strategy: "sideways", Properties: map[string]string{"endpoint": "https://u.test"}}
	assert.Error(t, bad.Validate())

	missing := &ProxyConfig{UUID: "y"}
	assert.Error(t, missing.Validate())
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "unauthorized", OutcomeUnauthorized.String())
	assert.Equal(t, "redirect", OutcomeRedirect.String())
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "proxy", OutcomeProxy.String())
}
