//go:build integration

package mqtt

import (
	"errors"
	"testing"
	"time"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_RetainedDiscoveryRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "graylogic-bridge-int-publisher"
	publisher, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer publisher.Close()

	root := "graylogic-it-" + time.Now().Format("150405.000")
	flat := root + "/sensor/dev1_temp/config"
	nested := root + "/sensor/dev1/humidity/config"
	for _, topic := range []string{flat, nested} {
		if err := publisher.Publish(topic, []byte(`{"uniq_id":"x"}`), 1, true); err != nil {
			t.Fatalf("Publish(%s) error = %v", topic, err)
		}
	}

	cfg.Broker.ClientID = "graylogic-bridge-int-subscriber"
	subscriber, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer subscriber.Close()

	received := make(chan string, 4)
	for _, filter := range (Topics{}).DiscoveryFilters(root) {
		err := subscriber.Subscribe(filter, 1, func(topic string, _ []byte) error {
			received <- topic
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe(%s) error = %v", filter, err)
		}
	}

	got := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case topic := <-received:
			got[topic] = true
		case <-timeout:
			t.Fatalf("received %v, want both %s and %s", got, flat, nested)
		}
	}

	// Clear retained messages.
	for _, topic := range []string{flat, nested} {
		_ = publisher.Publish(topic, nil, 1, true)
	}
}

func TestIntegration_PublishAfterClose(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "graylogic-bridge-int-closed"
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	err = client.Publish("graylogic/test", []byte("x"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}
