package server

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK            = "ok"
	healthStatusNotReady      = "not ready"
	healthStatusShuttingDown  = "shutting down"
	healthStatusInvalidConfig = "invalid config"
)

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// readinessCheck reports "ok" or the reason the server cannot take traffic.
type readinessCheck struct {
	name string
	run  func() string
}

// HealthChecker serves the Kubernetes probes and the /calserv/ alive route.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
	version string
	checks  []readinessCheck
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil,
// in which case only the ready flag is checked.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now(), version: version}
	h.ready.Store(true)

	h.checks = []readinessCheck{
		{name: "ready", run: func() string {
			if !h.ready.Load() {
				return healthStatusNotReady
			}
			return healthStatusOK
		}},
		{name: "shutdown", run: func() string {
			if h.sc != nil && h.sc.IsShutdown() {
				return healthStatusShuttingDown
			}
			return healthStatusOK
		}},
		{name: "config", run: func() string {
			if h.sc != nil && h.sc.Configs().Mutable().Validate() != nil {
				return healthStatusInvalidConfig
			}
			return healthStatusOK
		}},
	}
	return h
}

// SetReady flips readiness; the HTTP server clears it when draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the ready flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// evaluate runs every check and reports whether all passed.
func (h *HealthChecker) evaluate() (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		results[c.name] = c.run()
		if results[c.name] != healthStatusOK {
			healthy = false
		}
	}
	return results, healthy
}

// RegisterHealthEndpoints mounts the probes on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
	mux.Handle("GET /calserv/", h.AliveHandler())
}

// LivenessHandler answers 200 for as long as the process can serve HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 with the failing checks when the server should
// not receive traffic.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, healthy := h.evaluate()
		if !healthy {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler adds uptime and version to the readiness result.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, healthy := h.evaluate()
		resp := DetailedHealthResponse{
			Status:  healthStatusOK,
			Uptime:  time.Since(h.started).Truncate(time.Second).String(),
			Version: h.version,
			Checks:  checks,
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
			resp.Status = healthStatusNotReady
			if checks["shutdown"] != healthStatusOK {
				resp.Status = healthStatusShuttingDown
			}
		}
		writeJSON(w, status, resp)
	})
}

// AliveHandler echoes the requested path in plain text.
func (h *HealthChecker) AliveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "✅ Alive — you hit %s", r.URL.Path)
	})
}
