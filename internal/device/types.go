package device

import (
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
)

// Registration is the composite endpoint submitted for one physical device.
// This matches the registrations and registration_children tables in
// migrations/20261017_120000_registrations.up.sql.
type Registration struct {
	// Identity
	DeviceIdentifier string `json:"device_identifier" cbor:"device_identifier"`
	DisplayName      string `json:"display_name" cbor:"display_name"`

	// Descriptive metadata (placeholders unless origin metadata is used)
	Vendor          string `json:"vendor" cbor:"vendor"`
	Model           string `json:"model" cbor:"model"`
	SerialNumber    string `json:"serial_number" cbor:"serial_number"`
	FirmwareVersion string `json:"firmware_version" cbor:"firmware_version"`

	// Children in discovery order; names are unique within a registration.
	Children []Child `json:"children" cbor:"children"`

	// Provenance
	SessionID    string    `json:"session_id,omitempty" cbor:"session_id,omitempty"`
	RegisteredAt time.Time `json:"registered_at" cbor:"registered_at"`
}

// Child is one typed capability of a composite endpoint.
type Child struct {
	Name         string          `json:"name" cbor:"name"`
	EntityID     string          `json:"entity_id" cbor:"entity_id"`
	Capability   capability.Type `json:"capability" cbor:"capability"`
	DeviceTypeID uint32          `json:"device_type_id" cbor:"device_type_id"`
}

// DeepCopy creates an independent copy of the Registration.
func (r *Registration) DeepCopy() *Registration {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Children != nil {
		cpy.Children = make([]Child, len(r.Children))
		copy(cpy.Children, r.Children)
	}
	return &cpy
}

// CapabilityCounts returns how many children have each capability type.
func (r *Registration) CapabilityCounts() map[capability.Type]int {
	counts := make(map[capability.Type]int, len(r.Children))
	for _, c := range r.Children {
		counts[c.Capability]++
	}
	return counts
}

// Stats summarises the registry contents.
type Stats struct {
	Devices      int                     `json:"devices"`
	Children     int                     `json:"children"`
	Capabilities map[capability.Type]int `json:"capabilities"`
}
