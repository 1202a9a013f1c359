// Package config handles loading and validating the discovery bridge configuration.
//
// Values come from three layers, later ones winning:
//   - built-in defaults
//   - a YAML file (configs/bridge.yaml unless GRAYLOGIC_BRIDGE_CONFIG is set)
//   - GRAYLOGIC_* environment variables
//
// Credentials (MQTT password, InfluxDB token) should be supplied through the
// environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/bridge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Discovery.RootTopic)
package config
