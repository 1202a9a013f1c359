package influxdb

import "errors"

// Sentinel errors for the metrics client.
//
// Connect failures are fatal at startup, while write failures arrive later
// through SetOnError and are only logged:
//
//	client.SetOnError(func(err error) {
//	    if errors.Is(err, influxdb.ErrWriteFailed) {
//	        log.Error("InfluxDB write error", "error", err)
//	    }
//	})
var (
	// ErrNotConnected is returned by HealthCheck after Close or before Connect.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed or unhealthy ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps asynchronous batch failures passed to SetOnError.
	// Session and registration points in a failed batch are not retried.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
