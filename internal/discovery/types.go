package discovery

import "sort"

// NumericRange is the min/max pair of a numeric entity.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EntityRecord is one discovered capability.
//
// Empty DeviceClass and UnitOfMeasurement mean the payload did not carry them.
// DeviceName is the owning device's name as given by this entity's payload.
type EntityRecord struct {
	EntityID          string         `json:"entity_id"`
	DeviceIdentifier  string         `json:"device_identifier"`
	DeviceName        string         `json:"device_name"`
	DisplayName       string         `json:"display_name"`
	DiscoveryType     string         `json:"discovery_type"`
	DeviceClass       string         `json:"device_class,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	NumericRange      *NumericRange  `json:"numeric_range,omitempty"`
	Topic             string         `json:"topic"`
	RawAttributes     map[string]any `json:"raw_attributes,omitempty"`

	// seq is the arrival position within the session.
	seq int
}

// DeepCopy returns an independent copy of the record.
func (e *EntityRecord) DeepCopy() *EntityRecord {
	if e == nil {
		return nil
	}
	cp := *e
	if e.NumericRange != nil {
		r := *e.NumericRange
		cp.NumericRange = &r
	}
	if e.RawAttributes != nil {
		cp.RawAttributes = copyMap(e.RawAttributes)
	}
	return &cp
}

// Attribute returns a raw attribute as a string, or "" if absent or not a string.
func (e *EntityRecord) Attribute(key string) string {
	s, _ := e.RawAttributes[key].(string) //nolint:errcheck // type assertion
	return s
}

// DeviceAttribute returns a string field from the raw device block, e.g.
// "manufacturer" or "sw_version".
func (e *EntityRecord) DeviceAttribute(key string) string {
	dev, ok := e.RawAttributes["device"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := dev[key].(string) //nolint:errcheck // type assertion
	return s
}

// DeviceRecord groups the entities of one physical device.
// DisplayName is fixed by the first entity seen for the device.
type DeviceRecord struct {
	DeviceIdentifier string                   `json:"device_identifier"`
	DisplayName      string                   `json:"display_name"`
	Entities         map[string]*EntityRecord `json:"entities"`
}

// DeepCopy returns an independent copy of the device and its entities.
func (d *DeviceRecord) DeepCopy() *DeviceRecord {
	if d == nil {
		return nil
	}
	cp := &DeviceRecord{
		DeviceIdentifier: d.DeviceIdentifier,
		DisplayName:      d.DisplayName,
		Entities:         make(map[string]*EntityRecord, len(d.Entities)),
	}
	for id, e := range d.Entities {
		cp.Entities[id] = e.DeepCopy()
	}
	return cp
}

// OrderedEntities returns the entities in the order they were discovered.
func (d *DeviceRecord) OrderedEntities() []*EntityRecord {
	out := make([]*EntityRecord, 0, len(d.Entities))
	for _, e := range d.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].seq != out[j].seq {
			return out[i].seq < out[j].seq
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

func copyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = copyValue(v)
	}
	return cp
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		cp := make([]any, len(t))
		for i, item := range t {
			cp[i] = copyValue(item)
		}
		return cp
	default:
		return v
	}
}
