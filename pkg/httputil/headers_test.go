package httputil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveHopByHopHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Upgrade", "websocket")
	h.Set("Content-Type", "text/plain")

	RemoveHopByHopHeaders(h)

	assert.Empty(t, h.Get("Connection"))
	assert.Empty(t, h.Get("Transfer-Encoding"))
	assert.Empty(t, h.Get("Upgrade"))
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
}

func TestCopyHeaders(t *testing.T) {
	src := http.Header{"X-Multi": {"a", "b"}}
	dst := http.Header{"X-Multi": {"z"}}

	CopyHeaders(dst, src)

	assert.Equal(t, []string{"z", "a", "b"}, dst.Values("X-Multi"))
}

func TestHeaderFromMap(t *testing.T) {
	h := HeaderFromMap(map[string]string{"content-type": "application/json"})
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Empty(t, HeaderFromMap(nil))
}
