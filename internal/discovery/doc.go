// Package discovery aggregates MQTT discovery config messages into a
// device/entity graph.
//
// Gateways publish one retained message per entity on
// <root>/<type>/[<node>/]<object>/config. Each payload names the entity and
// the physical device it belongs to. During the discovery window the
// Collector parses those payloads and groups entities by device identifier
// inside a Session. When the window closes the session is frozen into a
// Snapshot, which is what the bridge registers.
//
// # Rules
//
//   - The first payload for an entity id wins for the life of the session.
//   - A device is created by its first entity, whose device.name becomes
//     the device's display name.
//   - Payloads that are not JSON objects, or that lack an entity id, a
//     device name or a device identifier, are logged and dropped.
//
// # Usage
//
//	c := discovery.NewCollector()
//	c.SetLogger(logger)
//	c.Begin(discovery.NewSession("homeassistant"))
//	_ = c.HandleDiscoveryMessage(ctx, topic, payload)
//	snap, err := c.Close()
package discovery
