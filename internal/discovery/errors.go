package discovery

import "errors"

// Domain errors for the discovery package.
//
// Per-message errors (malformed payload, missing field, duplicate) are
// recoverable: the collector logs them and the session is unaffected.
var (
	// ErrMalformedPayload is returned when a config payload is not a JSON object.
	ErrMalformedPayload = errors.New("discovery: malformed payload")

	// ErrMissingField is returned when a required field (entity id, device
	// name or device identifier) is absent.
	ErrMissingField = errors.New("discovery: missing required field")

	// ErrNotDiscoveryTopic is returned for topics outside the discovery root.
	ErrNotDiscoveryTopic = errors.New("discovery: not a discovery topic")

	// ErrDuplicateEntity is returned when an entity id was already recorded
	// in the session. The first payload wins.
	ErrDuplicateEntity = errors.New("discovery: duplicate entity")

	// ErrSessionFrozen is returned when mutating a session after its window closed.
	ErrSessionFrozen = errors.New("discovery: session frozen")

	// ErrNoSession is returned when a message arrives before any session began.
	ErrNoSession = errors.New("discovery: no open session")
)
