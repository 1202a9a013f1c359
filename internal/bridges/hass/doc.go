// Package hass bridges MQTT discovery into composite device registrations.
//
// Gateways such as Zigbee2MQTT, ESPHome and Tasmota announce every entity
// with a retained config message under a discovery prefix. The bridge
// collects those messages for a short window after each connection, groups
// them by physical device and registers one composite endpoint per device,
// with one typed child per entity.
//
// # Architecture
//
//	  MQTT broker
//	       │
//	       ▼
//	┌──────────────┐  events  ┌──────────────┐  snapshot  ┌──────────────┐
//	│   Adapter    │─────────▶│    Bridge    │───────────▶│ Orchestrator │
//	│ (adapter.go) │ in order │ (bridge.go)  │            │              │
//	│ • window     │          │ • Collector  │            │ • Classify   │
//	│ • subscribe  │          │ • status     │            │ • Registrar  │
//	└──────────────┘          └──────────────┘            └──────────────┘
//
// The Adapter turns transport callbacks and its window timer into one
// ordered event stream. Run delivers them to an EventSink one at a time,
// so the open session is only ever touched by one goroutine and is frozen
// before the orchestrator reads it.
//
// # Usage
//
//	adapter, _ := hass.NewAdapter(hass.AdapterOptions{
//	    Transport: client,
//	    RootTopic: "homeassistant",
//	    Window:    500 * time.Millisecond,
//	})
//	orch, _ := hass.NewOrchestrator(hass.OrchestratorOptions{Registrar: registry})
//	bridge, _ := hass.NewBridge(hass.BridgeOptions{Orchestrator: orch, RootTopic: "homeassistant"})
//
//	go adapter.Run(ctx, bridge)
//	if err := adapter.Connect(); err != nil {
//	    return err
//	}
package hass
