// Package device provides the registration boundary of the discovery bridge.
//
// After a discovery window closes, the bridge builds one composite
// Registration per physical device: a display name, descriptive metadata
// and one typed Child per discovered entity. Registrations are handed to a
// Registrar, which turns them into live endpoints.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                           Registrar                                │
//	│                                                                    │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌────────────────┐ │
//	│  │     Registry     │   │ PublishRegistrar │   │     Fanout     │ │
//	│  │  (registry.go)   │   │  (publisher.go)  │   │ (registrar.go) │ │
//	│  │                  │   │                  │   │                │ │
//	│  │ • Idempotent     │   │ • JSON or CBOR   │   │ • All targets  │ │
//	│  │ • In-memory cache│   │ • MQTT publish   │   │ • Joined errors│ │
//	│  └────────┬─────────┘   └──────────────────┘   └────────────────┘ │
//	└───────────│───────────────────────────────────────────────────────┘
//	            ▼
//	┌─────────────────────────┐
//	│     SQLite Database     │
//	│ registrations           │
//	│ registration_children   │
//	└─────────────────────────┘
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	pub, _ := device.NewPublishRegistrar(client, topicFn, device.CodecCBOR, 1, true)
//	var registrar device.Registrar = device.Fanout{registry, pub}
//
//	err := registrar.Register(ctx, &device.Registration{...})
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex. The Repository implementation must also be thread-safe.
package device
