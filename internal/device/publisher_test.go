package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingPublisher struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	calls    int
	err      error
}

func (p *recordingPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.topic, p.payload, p.qos, p.retained = topic, payload, qos, retained
	return nil
}

func topicFor(id string) string { return "graylogic/bridge/" + id + "/register" }

func TestPublishRegistrar_Codecs(t *testing.T) {
	for _, codec := range []string{CodecJSON, CodecCBOR} {
		t.Run(codec, func(t *testing.T) {
			pub := &recordingPublisher{}
			r, err := NewPublishRegistrar(pub, topicFor, codec, 1, true)
			if err != nil {
				t.Fatalf("NewPublishRegistrar() error = %v", err)
			}

			in := testRegistration("dev-1")
			in.RegisteredAt = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
			if err := r.Register(context.Background(), in); err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			if pub.topic != "graylogic/bridge/dev-1/register" || pub.qos != 1 || !pub.retained {
				t.Errorf("published to %q qos=%d retained=%v", pub.topic, pub.qos, pub.retained)
			}

			out, err := Decode(codec, pub.payload)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if out.DeviceIdentifier != "dev-1" || len(out.Children) != 2 {
				t.Errorf("decoded = %+v", out)
			}
			if out.Children[1].Capability != in.Children[1].Capability {
				t.Errorf("child capability = %q", out.Children[1].Capability)
			}
			if !out.RegisteredAt.Equal(in.RegisteredAt) {
				t.Errorf("RegisteredAt = %v", out.RegisteredAt)
			}
		})
	}
}

func TestPublishRegistrar_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("not connected")}
	r, _ := NewPublishRegistrar(pub, topicFor, CodecJSON, 0, false)

	err := r.Register(context.Background(), testRegistration("dev-1"))
	if !errors.Is(err, ErrRegistrationRejected) {
		t.Errorf("Register() error = %v, want ErrRegistrationRejected", err)
	}
}

func TestPublishRegistrar_InvalidNotPublished(t *testing.T) {
	pub := &recordingPublisher{}
	r, _ := NewPublishRegistrar(pub, topicFor, CodecJSON, 0, false)

	bad := testRegistration("")
	if err := r.Register(context.Background(), bad); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Register() error = %v, want ErrInvalidRegistration", err)
	}
	if pub.calls != 0 {
		t.Error("invalid registration was published")
	}
}

func TestNewPublishRegistrar_Errors(t *testing.T) {
	if _, err := NewPublishRegistrar(&recordingPublisher{}, topicFor, "xml", 0, false); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("unknown codec error = %v", err)
	}
	if _, err := NewPublishRegistrar(nil, topicFor, CodecJSON, 0, false); err == nil {
		t.Error("nil publisher should fail")
	}
}

func TestEncode_UnknownCodec(t *testing.T) {
	if _, err := Encode("xml", testRegistration("a")); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("Encode() error = %v", err)
	}
	if _, err := Decode("xml", nil); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("Decode() error = %v", err)
	}
}
