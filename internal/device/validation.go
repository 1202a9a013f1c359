package device

import (
	"fmt"
	"strings"
)

// Registration limits, in bytes for strings.
const (
	MaxNameLength     = 100
	MaxSerialLength   = 32
	MaxMetadataLength = 64

	// MaxChildren is the number of endpoint ids a 16-bit endpoint space
	// leaves for children once the root endpoint and 0xFFFF are reserved.
	MaxChildren = 0xFFFD

	maxIdentifierLen = 256
)

// ValidateRegistration checks a registration before it is submitted.
// Returns an error describing the first validation failure found.
func ValidateRegistration(r *Registration) error {
	if r == nil {
		return fmt.Errorf("%w: registration is nil", ErrInvalidRegistration)
	}

	id := strings.TrimSpace(r.DeviceIdentifier)
	if id == "" {
		return fmt.Errorf("%w: device identifier is required", ErrInvalidRegistration)
	}
	if len(id) > maxIdentifierLen {
		return fmt.Errorf("%w: device identifier exceeds %d characters", ErrInvalidRegistration, maxIdentifierLen)
	}

	if err := validateName("display name", r.DisplayName); err != nil {
		return err
	}

	for field, v := range map[string]string{
		"vendor":           r.Vendor,
		"model":            r.Model,
		"firmware version": r.FirmwareVersion,
	} {
		if len(v) > MaxMetadataLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRegistration, field, MaxMetadataLength)
		}
	}
	if len(r.SerialNumber) > MaxSerialLength {
		return fmt.Errorf("%w: serial number exceeds %d characters", ErrInvalidRegistration, MaxSerialLength)
	}

	return ValidateChildren(r.Children)
}

// ValidateChildren checks that a device has at least one child, that every
// child has a unique name and a known capability type.
func ValidateChildren(children []Child) error {
	if len(children) == 0 {
		return fmt.Errorf("%w: at least one child is required", ErrInvalidRegistration)
	}
	if len(children) > MaxChildren {
		return fmt.Errorf("%w: too many children (%d, max %d)", ErrInvalidRegistration, len(children), MaxChildren)
	}

	names := make(map[string]struct{}, len(children))
	for i, c := range children {
		if err := validateName(fmt.Sprintf("child %d name", i), c.Name); err != nil {
			return err
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("%w: duplicate child name %q", ErrInvalidRegistration, c.Name)
		}
		names[c.Name] = struct{}{}

		if !c.Capability.Valid() {
			return fmt.Errorf("%w: child %q has unknown capability %q", ErrInvalidRegistration, c.Name, c.Capability)
		}
	}
	return nil
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRegistration, field)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRegistration, field, MaxNameLength)
	}
	return nil
}
