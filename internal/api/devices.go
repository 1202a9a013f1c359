package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
	"github.com/nerrad567/gray-logic-bridge/internal/device"
)

// handleListDevices returns all registered composite devices.
//
// Query parameters:
//   - capability: only devices with at least one child of this type
//     (temperature_sensor, contact_sensor, etc.)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if capStr := r.URL.Query().Get("capability"); capStr != "" {
		t := capability.Type(capStr)
		if !t.Valid() {
			writeBadRequest(w, "unknown capability: "+capStr)
			return
		}
		devices := s.registry.ListByCapability(t)
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single registration by device identifier.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// handleDeleteDevice forgets a registration. The device is registered
// again the next time it is discovered.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Unregister(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}
