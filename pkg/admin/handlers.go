package admin

import (
	"maps"
	"net/http"
	"time"

	"github.com/getmockd/stubd/pkg/httputil"
	stubdtls "github.com/getmockd/stubd/pkg/tls"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status        string                    `json:"status"`
	Version       string                    `json:"version"`
	Uptime        string                    `json:"uptime"`
	UptimeSeconds int64                     `json:"uptimeSeconds"`
	Stubs         int                       `json:"stubs"`
	ProxyConfigs  int                       `json:"proxyConfigs"`
	Hits          int64                     `json:"hits"`
	Ports         map[string]int            `json:"ports"`
	TLS           *stubdtls.CertificateInfo `json:"tls,omitempty"`
}

// handlePing handles GET /ping.
func (a *API) handlePing(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, "pong")
}

// handleGetStatus handles GET /status.
func (a *API) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	var hits int64
	for _, n := range a.store.Stats() {
		hits += n
	}

	uptime := a.Uptime()
	ports := map[string]int{"admin": a.Port()}
	if a.engine != nil {
		uptime = a.engine.Uptime()
		maps.Copy(ports, a.engine.Ports())
	}

	status := StatusResponse{
		Status:        "ok",
		Version:       a.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Stubs:         a.store.Count(),
		ProxyConfigs:  len(a.store.ProxyConfigs()),
		Hits:          hits,
		Ports:         ports,
	}
	if a.engine != nil {
		if cert, ok := a.engine.TLSCertificate(); ok {
			info, err := stubdtls.Info(cert)
			if err != nil {
				a.log.Warn("could not describe TLS certificate", "error", err)
			} else {
				status.TLS = info
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// handleGetStats handles GET /stats. ?format=csv renders resourceId,hits lines.
func (a *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "csv" {
		httputil.WriteBody(w, http.StatusOK, httputil.ContentTypeCSV, []byte(a.store.StatsCSV()))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.store.Stats())
}
