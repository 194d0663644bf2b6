package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler serves the liveness probe. It always answers 200.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (HealthStatus, int) {
		return c.CheckLiveness(r.Context()), http.StatusOK
	})
}

// ReadinessHandler serves the readiness probe: 200 when every check
// passes, 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (HealthStatus, int) {
		status := c.CheckReadiness(r.Context())
		if status.Status != StatusReady {
			return status, http.StatusServiceUnavailable
		}
		return status, http.StatusOK
	})
}

func probe(run func(r *http.Request) (HealthStatus, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status, code := run(r)
		writeJSON(w, r, code, status)
	}
}

// VersionHandler serves build information.
func VersionHandler(info BuildInfo) http.HandlerFunc {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Register mounts the liveness, readiness and version endpoints on mux.
// Empty paths fall back to /health and /ready.
func Register(mux *http.ServeMux, c *Checker, livenessPath, readinessPath string, info BuildInfo) {
	if livenessPath == "" {
		livenessPath = "/health"
	}
	if readinessPath == "" {
		readinessPath = "/ready"
	}
	mux.Handle(livenessPath, c.LivenessHandler())
	mux.Handle(readinessPath, c.ReadinessHandler())
	mux.Handle("/version", VersionHandler(info))
}
