// Package logging provides structured logging for the discovery bridge.
//
// It wraps log/slog so every entry carries the service name and build
// version. JSON is the production format; text is available for local runs:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("collector").Warn("dropping discovery message", "topic", topic, "error", err)
//
// Never log broker passwords or InfluxDB tokens.
package logging
