// Package influxdb records discovery bridge metrics in InfluxDB.
//
// It wraps influxdb-client-go v2 with a non-blocking, batched write API.
// Two measurements are written:
//   - discovery_session: devices, entities and rejected/duplicate message
//     counts for each closed discovery window
//   - device_registration: child count and outcome per submitted device
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRegistrationMetric("dev-1", 2, true)
//
// Write errors arrive asynchronously through SetOnError.
package influxdb
