package device

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec names accepted by NewPublishRegistrar.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// Publisher is the outbound half of the transport.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TopicFunc maps a device identifier to its registration topic.
type TopicFunc func(deviceIdentifier string) string

// cborEncMode encodes registrations deterministically with RFC 3339 times.
var cborEncMode cbor.EncMode

// cborDecMode decodes registrations leniently.
var cborDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Encode serialises a registration with the named codec.
func Encode(codec string, r *Registration) ([]byte, error) {
	switch codec {
	case CodecJSON, "":
		return json.Marshal(r)
	case CodecCBOR:
		return cborEncMode.Marshal(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
}

// Decode parses a registration produced by Encode.
func Decode(codec string, data []byte) (*Registration, error) {
	var r Registration
	var err error
	switch codec {
	case CodecJSON, "":
		err = json.Unmarshal(data, &r)
	case CodecCBOR:
		err = cborDecMode.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding registration: %w", err)
	}
	return &r, nil
}

// PublishRegistrar announces each registration on the broker so other
// controllers can build the endpoint.
type PublishRegistrar struct {
	pub      Publisher
	topic    TopicFunc
	codec    string
	qos      byte
	retained bool
}

// NewPublishRegistrar creates a registrar publishing through pub.
func NewPublishRegistrar(pub Publisher, topic TopicFunc, codec string, qos byte, retained bool) (*PublishRegistrar, error) {
	if pub == nil || topic == nil {
		return nil, fmt.Errorf("publish registrar: publisher and topic func are required")
	}
	if codec != CodecJSON && codec != CodecCBOR {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
	return &PublishRegistrar{
		pub:      pub,
		topic:    topic,
		codec:    codec,
		qos:      qos,
		retained: retained,
	}, nil
}

// Register encodes r and publishes it on its registration topic.
func (p *PublishRegistrar) Register(_ context.Context, r *Registration) error {
	if err := ValidateRegistration(r); err != nil {
		return err
	}

	payload, err := Encode(p.codec, r)
	if err != nil {
		return fmt.Errorf("encoding registration: %w", err)
	}

	if err := p.pub.Publish(p.topic(r.DeviceIdentifier), payload, p.qos, p.retained); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
	}
	return nil
}
