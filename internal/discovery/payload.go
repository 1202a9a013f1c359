package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Keys lifted out of the payload into EntityRecord fields. Everything else
// stays in RawAttributes.
const (
	keyUniqueID    = "unique_id"
	keyObjectID    = "object_id"
	keyName        = "name"
	keyDevice      = "device"
	keyDeviceClass = "device_class"
	keyUnit        = "unit_of_measurement"
	keyMin         = "min"
	keyMax         = "max"
	keyIdentifiers = "identifiers"
	keyBaseTopic   = "~"
)

// TypeFromTopic returns the discovery type of a config topic: the path
// segment directly after the root, e.g. "sensor" for
// "homeassistant/sensor/kitchen/temp/config".
func TypeFromTopic(root, topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, root+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q is not under %q", ErrNotDiscoveryTopic, topic, root)
	}
	discoveryType, _, found := strings.Cut(rest, "/")
	if !found || discoveryType == "" {
		return "", fmt.Errorf("%w: %q has no type segment", ErrNotDiscoveryTopic, topic)
	}
	return discoveryType, nil
}

// ParseEntity decodes one discovery config message into an EntityRecord.
//
// Required: an entity id (unique_id, or object_id when unique_id is
// absent), device.name and a device identifier (the first element of
// device.identifiers, which may also be a bare string). Abbreviated keys
// are expanded first. The display name falls back to the entity id.
func ParseEntity(root, topic string, payload []byte) (*EntityRecord, error) {
	discoveryType, err := TypeFromTopic(root, topic)
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	expandAbbreviations(doc)
	expandBaseTopic(doc)

	entityID := scalarString(doc[keyUniqueID])
	if entityID == "" {
		entityID = scalarString(doc[keyObjectID])
	}
	if entityID == "" {
		return nil, fmt.Errorf("%w: unique_id", ErrMissingField)
	}

	dev, ok := doc[keyDevice].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: device", ErrMissingField)
	}
	deviceName := scalarString(dev[keyName])
	if deviceName == "" {
		return nil, fmt.Errorf("%w: device.name", ErrMissingField)
	}
	deviceID := firstIdentifier(dev[keyIdentifiers])
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device.identifiers", ErrMissingField)
	}

	displayName := scalarString(doc[keyName])
	if displayName == "" {
		displayName = entityID
	}

	rec := &EntityRecord{
		EntityID:          entityID,
		DeviceIdentifier:  deviceID,
		DeviceName:        deviceName,
		DisplayName:       displayName,
		DiscoveryType:     discoveryType,
		DeviceClass:       scalarString(doc[keyDeviceClass]),
		UnitOfMeasurement: scalarString(doc[keyUnit]),
		NumericRange:      numericRange(doc),
		Topic:             topic,
		RawAttributes:     make(map[string]any, len(doc)),
	}

	for k, v := range doc {
		switch k {
		case keyUniqueID, keyName, keyDeviceClass, keyUnit, keyMin, keyMax, keyBaseTopic:
			continue
		}
		rec.RawAttributes[k] = v
	}

	return rec, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	var doc map[string]any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if doc == nil {
		// "null" decodes without error.
		return nil, fmt.Errorf("%w: payload is null", ErrMalformedPayload)
	}
	return doc, nil
}

// scalarString renders strings and numbers; other kinds yield "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func firstIdentifier(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return ""
		}
		return scalarString(t[0])
	default:
		return scalarString(t)
	}
}

// numericRange is set only when both bounds are numeric.
func numericRange(doc map[string]any) *NumericRange {
	lo, okLo := toFloat(doc[keyMin])
	hi, okHi := toFloat(doc[keyMax])
	if !okLo || !okHi {
		return nil
	}
	return &NumericRange{Min: lo, Max: hi}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
