// Package mqtt provides the broker connection used by the discovery bridge.
//
// It wraps paho.mqtt.golang with:
//   - scheme-aware broker URLs (tcp, ssl, ws, wss and the mqtt/mqtts aliases)
//   - ordered, single-goroutine message delivery
//   - a retained availability topic with a Last Will of "offline"
//   - sentinel errors for connect, publish and subscribe failures
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT)
//	client.SetOnConnect(func() { ... })
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	for _, filter := range mqtt.Topics{}.DiscoveryFilters("homeassistant") {
//	    client.Subscribe(filter, 1, handler)
//	}
//
// Reconnects use paho's exponential backoff between the configured
// initial and maximum delays.
package mqtt
