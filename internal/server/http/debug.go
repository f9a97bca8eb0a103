package http

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// DebugHandler provides runtime and profiling endpoints.
type DebugHandler struct {
	pprofEnabled bool
	startTime    time.Time
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(pprofEnabled bool) *DebugHandler {
	return &DebugHandler{
		pprofEnabled: pprofEnabled,
		startTime:    time.Now(),
	}
}

// Register registers debug endpoints on router.
func (h *DebugHandler) Register(router *mux.Router) {
	router.HandleFunc("/debug/", h.handleDebugIndex).Methods(http.MethodGet)
	router.HandleFunc("/debug/runtime", h.handleRuntimeInfo).Methods(http.MethodGet)

	if h.pprofEnabled {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		// Index also serves the named profiles (heap, goroutine, mutex...).
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

		log.Info().Msg("pprof endpoints registered at /debug/pprof/")
	}
}

func (h *DebugHandler) handleDebugIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintln(w, "pubd debug endpoints")
	_, _ = fmt.Fprintln(w, "  /debug/runtime   Go runtime statistics (JSON)")
	if h.pprofEnabled {
		_, _ = fmt.Fprintln(w, "  /debug/pprof/    pprof index")
	} else {
		_, _ = fmt.Fprintln(w, "  pprof is disabled; set admin.pprof: true")
	}
}

// handleRuntimeInfo returns Go runtime information as JSON.
func (h *DebugHandler) handleRuntimeInfo(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	info := map[string]interface{}{
		"go_version":     runtime.Version(),
		"go_os":          runtime.GOOS,
		"go_arch":        runtime.GOARCH,
		"num_cpu":        runtime.NumCPU(),
		"num_goroutine":  runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"memory": map[string]interface{}{
			"alloc_mb":          float64(memStats.Alloc) / 1024 / 1024,
			"sys_mb":            float64(memStats.Sys) / 1024 / 1024,
			"heap_inuse_mb":     float64(memStats.HeapInuse) / 1024 / 1024,
			"heap_objects":      memStats.HeapObjects,
			"num_gc":            memStats.NumGC,
			"gc_pause_total_ms": float64(memStats.PauseTotalNs) / 1e6,
		},
	}

	writeJSON(w, http.StatusOK, info)
}
