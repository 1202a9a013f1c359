package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.noStoreMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/session", s.handleSession)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.registry.Count(),
	}
	if s.status != nil {
		resp["mqtt_connected"] = s.status.Status().Connected
	}
	if s.hub != nil {
		resp["websocket_clients"] = s.hub.ClientCount()
		resp["websocket_dropped"] = s.hub.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSession returns the current discovery session status and the
// outcome of the last closed window.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "bridge not running")
		return
	}

	st := s.status.Status()
	resp := map[string]any{"status": st}
	if st.LastReport != nil {
		failed := make(map[string]string, len(st.LastReport.Failed))
		for id, err := range st.LastReport.Failed {
			failed[id] = err.Error()
		}
		resp["failed"] = failed
	}
	writeJSON(w, http.StatusOK, resp)
}
