// Package api implements the HTTP status API and WebSocket event stream of
// the discovery bridge.
//
// This package provides:
//   - Read endpoints for registered composite devices and registry stats
//   - The current discovery session status and the last window's report
//   - A WebSocket hub broadcasting registration and session events
//   - Middleware stack (request ID, logging, recovery, CORS, no-store)
//
// # Routes
//
//	GET    /api/v1/health
//	GET    /api/v1/session
//	GET    /api/v1/devices[?capability=temperature_sensor]
//	GET    /api/v1/devices/stats
//	GET    /api/v1/devices/{id}
//	DELETE /api/v1/devices/{id}
//	GET    /api/v1/ws[?channels=bridge.device_registered,bridge.session_closed]
//
// # Events
//
// Every broadcast carries a hub-wide sequence number. The hub retains the
// last event of each channel and replays it, flagged retained, to clients
// that subscribe later. Subscribing to bridge.* selects every channel.
//
// # Lifecycle
//
//	hub := api.NewHub(cfg.WebSocket, logger)
//	go hub.Run(ctx)
//	server, err := api.New(api.Deps{..., ExternalHub: hub})
//	server.Start(ctx)
//	defer server.Close()
//
// The API is optional. The bridge registers devices whether or not it runs.
package api
