package admin

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/stub"
)

// maxPayloadSize bounds stub documents posted to the admin portal.
const maxPayloadSize = 10 << 20

// readPayload reads the request body. It writes the error response itself and
// reports false when the handler should stop.
func (a *API) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.WriteText(w, http.StatusRequestEntityTooLarge, "Request body exceeds maximum allowed size")
			return nil, false
		}
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	if strings.TrimSpace(string(data)) == "" {
		httputil.WriteBadRequest(w, emptyPayloadMessage(r))
		return nil, false
	}
	return data, true
}

// writeStubs renders lifecycles as YAML, or as JSON when the client asks.
func (a *API) writeStubs(w http.ResponseWriter, r *http.Request, lifecycles []*stub.Lifecycle) {
	if wantsJSON(r) {
		data, err := config.ToJSON(lifecycles)
		if err != nil {
			httputil.WriteInternalError(w, err.Error())
			return
		}
		httputil.WriteBody(w, http.StatusOK, httputil.ContentTypeJSON, data)
		return
	}
	data, err := config.ToYAML(lifecycles)
	if err != nil {
		httputil.WriteInternalError(w, err.Error())
		return
	}
	httputil.WriteBody(w, http.StatusOK, httputil.ContentTypeYAML, data)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "json")
}

// handleListStubs handles GET /.
func (a *API) handleListStubs(w http.ResponseWriter, r *http.Request) {
	a.writeStubs(w, r, a.store.List())
}

// handleGetStub handles GET /{id}.
func (a *API) handleGetStub(w http.ResponseWriter, r *http.Request) {
	ref := parseStubRef(r.PathValue("id"))

	var (
		lc  *stub.Lifecycle
		err error
	)
	if ref.byUUID() {
		lc, err = a.store.GetByUUID(ref.uuid)
	} else {
		lc, err = a.store.Get(ref.index)
	}
	if err != nil {
		a.writeStoreError(w, err, ref, "get")
		return
	}
	a.writeStubs(w, r, []*stub.Lifecycle{lc})
}

// handleReplaceStubs handles POST /. A document that carries proxy-config
// entries replaces the proxy configs as well.
func (a *API) handleReplaceStubs(w http.ResponseWriter, r *http.Request) {
	data, ok := a.readPayload(w, r)
	if !ok {
		return
	}
	res, err := a.loader.Parse(data, a.baseDir)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if len(res.ProxyConfigs) > 0 {
		err = a.store.Reload(res.Lifecycles, res.ProxyConfigs)
	} else {
		err = a.store.ReplaceAll(res.Lifecycles)
	}
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	a.metrics.SetStubs(a.store.Count())
	a.log.Info("stubs replaced", "stubs", len(res.Lifecycles), "proxyConfigs", len(res.ProxyConfigs))
	httputil.WriteCreated(w, "", "Configuration created successfully")
}

// handleAppendStubs handles POST /append.
func (a *API) handleAppendStubs(w http.ResponseWriter, r *http.Request) {
	data, ok := a.readPayload(w, r)
	if !ok {
		return
	}
	res, err := a.loader.Parse(data, a.baseDir)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if len(res.Lifecycles) == 0 && len(res.ProxyConfigs) == 0 {
		httputil.WriteBadRequest(w, emptyPayloadMessage(r))
		return
	}

	if err := a.store.Append(res.Lifecycles...); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	for _, pc := range res.ProxyConfigs {
		if err := a.store.PutProxyConfig(pc); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
	}
	a.metrics.SetStubs(a.store.Count())
	a.log.Info("stubs appended", "stubs", len(res.Lifecycles), "proxyConfigs", len(res.ProxyConfigs))
	httputil.WriteCreated(w, "", "Configuration created successfully")
}

// handleUpdateStub handles PUT /{id}.
func (a *API) handleUpdateStub(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ref := parseStubRef(id)

	data, ok := a.readPayload(w, r)
	if !ok {
		return
	}
	lc, err := a.loader.ParseLifecycle(data, a.baseDir)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if ref.byUUID() {
		if lc.UUID == "" {
			lc.UUID = ref.uuid
		}
		err = a.store.UpdateByUUID(ref.uuid, lc)
	} else {
		err = a.store.Update(ref.index, lc)
	}
	if err != nil {
		a.writeStoreError(w, err, ref, "update")
		return
	}
	a.log.Info("stub updated", "stub", ref.String())
	httputil.WriteCreated(w, "/"+id, "Stub request "+ref.String()+" updated successfully")
}

// handleDeleteStub handles DELETE /{id}.
func (a *API) handleDeleteStub(w http.ResponseWriter, r *http.Request) {
	ref := parseStubRef(r.PathValue("id"))

	var err error
	if ref.byUUID() {
		_, err = a.store.DeleteByUUID(ref.uuid)
	} else {
		_, err = a.store.Delete(ref.index)
	}
	if err != nil {
		a.writeStoreError(w, err, ref, "delete")
		return
	}
	a.metrics.SetStubs(a.store.Count())
	a.log.Info("stub deleted", "stub", ref.String())
	httputil.WriteOK(w, "Stub request "+ref.String()+" deleted successfully")
}

// handleDeleteAllStubs handles DELETE /.
func (a *API) handleDeleteAllStubs(w http.ResponseWriter, _ *http.Request) {
	a.store.Clear()
	a.metrics.SetStubs(0)
	a.log.Info("all stubs deleted")
	httputil.WriteOK(w, "All stubs deleted successfully")
}
