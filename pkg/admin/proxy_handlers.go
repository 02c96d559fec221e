package admin

import (
	"errors"
	"net/http"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/stub"
)

func (a *API) writeProxyConfigs(w http.ResponseWriter, r *http.Request, configs []*stub.ProxyConfig) {
	if wantsJSON(r) {
		httputil.WriteJSON(w, http.StatusOK, configs)
		return
	}
	data, err := config.ProxyConfigsToYAML(configs)
	if err != nil {
		httputil.WriteInternalError(w, err.Error())
		return
	}
	httputil.WriteBody(w, http.StatusOK, httputil.ContentTypeYAML, data)
}

// handleListProxyConfigs handles GET /proxy-config.
func (a *API) handleListProxyConfigs(w http.ResponseWriter, r *http.Request) {
	a.writeProxyConfigs(w, r, a.store.ProxyConfigs())
}

// handleGetProxyConfig handles GET /proxy-config/{uuid}.
func (a *API) handleGetProxyConfig(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")
	pc, ok := a.store.ProxyConfig(uuid)
	if !ok {
		httputil.WriteBadRequest(w, missingProxyConfigMessage(uuid, "get"))
		return
	}
	a.writeProxyConfigs(w, r, []*stub.ProxyConfig{pc})
}

// handlePutProxyConfig handles PUT /proxy-config/{uuid}. The uuid in the path
// wins over one in the payload.
func (a *API) handlePutProxyConfig(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")
	data, ok := a.readPayload(w, r)
	if !ok {
		return
	}
	pc, err := a.loader.ParseProxyConfig(data)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	pc.UUID = uuid
	if err := a.store.PutProxyConfig(pc); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	a.log.Info("proxy config stored", "uuid", uuid, "endpoint", pc.Endpoint())
	httputil.WriteCreated(w, "/proxy-config/"+uuid, "Proxy config uuid#"+uuid+" stored successfully")
}

// handleDeleteProxyConfig handles DELETE /proxy-config/{uuid}.
func (a *API) handleDeleteProxyConfig(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")
	if err := a.store.DeleteProxyConfig(uuid); err != nil {
		if errors.Is(err, storage.ErrProxyConfigNotFound) {
			httputil.WriteBadRequest(w, missingProxyConfigMessage(uuid, "delete"))
			return
		}
		httputil.WriteInternalError(w, err.Error())
		return
	}
	a.log.Info("proxy config deleted", "uuid", uuid)
	httputil.WriteOK(w, "Proxy config uuid#"+uuid+" deleted successfully")
}

func missingProxyConfigMessage(uuid, op string) string {
	return "Proxy config uuid#" + uuid + " does not exist, cannot " + op
}
