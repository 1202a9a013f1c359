package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device identifier is not registered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidRegistration is returned when registration validation fails.
	ErrInvalidRegistration = errors.New("device: invalid registration")

	// ErrRegistrationRejected is returned when a registration boundary
	// refuses a device.
	ErrRegistrationRejected = errors.New("device: registration rejected")

	// ErrUnknownCodec is returned for a publish codec other than json or cbor.
	ErrUnknownCodec = errors.New("device: unknown codec")
)
