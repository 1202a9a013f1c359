package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
	"github.com/nerrad567/gray-logic-bridge/internal/device"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
)

// writeConfig writes content to a temp file and points the bridge at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_BRIDGE_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_BRIDGE_CONFIG", "/nonexistent/path/bridge.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_InvalidWindow verifies validation errors stop startup.
func TestRun_InvalidWindow(t *testing.T) {
	writeConfig(t, `
discovery:
  root_topic: "homeassistant"
  window: -1s
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with a negative discovery window")
	}
	if !strings.Contains(err.Error(), "discovery.window") {
		t.Errorf("run() error = %v, want discovery.window in message", err)
	}
}

// TestRun_WildcardRootTopic verifies a wildcard root topic is rejected.
func TestRun_WildcardRootTopic(t *testing.T) {
	writeConfig(t, `
discovery:
  root_topic: "homeassistant/#"
`)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with a wildcard root topic")
	}
}

// TestRun_BrokerUnavailable verifies run fails cleanly when nothing listens
// on the broker port.
func TestRun_BrokerUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("connect timeout takes several seconds")
	}

	writeConfig(t, `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "bridge-main-test"
database:
  path: ":memory:"
api:
  enabled: false
logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a broker")
	}
	if !strings.Contains(err.Error(), "connecting to MQTT") {
		t.Errorf("run() error = %v, want MQTT connect error", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_BRIDGE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/bridge.yaml"
	t.Setenv("GRAYLOGIC_BRIDGE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// ─── buildRegistrar ────────────────────────────────────────────────

type capturePublisher struct {
	topics   []string
	retained []bool
}

func (c *capturePublisher) Publish(topic string, _ []byte, _ byte, retained bool) error {
	c.topics = append(c.topics, topic)
	c.retained = append(c.retained, retained)
	return nil
}

func TestBuildRegistrar_RegistryOnly(t *testing.T) {
	cfg := config.Default()

	r, err := buildRegistrar(cfg, nil, &capturePublisher{})
	if err != nil {
		t.Fatalf("buildRegistrar() error = %v", err)
	}
	fanout, ok := r.(device.Fanout)
	if !ok {
		t.Fatalf("buildRegistrar() returned %T, want device.Fanout", r)
	}
	if len(fanout) != 1 {
		t.Errorf("len(fanout) = %d, want 1", len(fanout))
	}
}

func TestBuildRegistrar_Publishing(t *testing.T) {
	cfg := config.Default()
	cfg.Registration.Publish.Enabled = true
	cfg.Registration.Publish.Retain = true
	pub := &capturePublisher{}

	r, err := buildRegistrar(cfg, nil, pub)
	if err != nil {
		t.Fatalf("buildRegistrar() error = %v", err)
	}
	fanout := r.(device.Fanout) //nolint:errcheck // checked above
	if len(fanout) != 2 {
		t.Fatalf("len(fanout) = %d, want 2", len(fanout))
	}

	reg := &device.Registration{
		DeviceIdentifier: "dev-1",
		DisplayName:      "Hall Sensor",
		Children: []device.Child{
			{Name: "Temperature", EntityID: "t1", Capability: capability.TypeTemperatureSensor, DeviceTypeID: 0x0302},
		},
	}
	if err := fanout[1].Register(context.Background(), reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	want := "graylogic/bridge/dev-1/register"
	if len(pub.topics) != 1 || pub.topics[0] != want {
		t.Errorf("published topics = %v, want [%s]", pub.topics, want)
	}
	if !pub.retained[0] {
		t.Error("registration should be published retained")
	}
}

func TestBuildRegistrar_UnknownCodec(t *testing.T) {
	cfg := config.Default()
	cfg.Registration.Publish.Enabled = true
	cfg.Registration.Publish.Codec = "xml"

	if _, err := buildRegistrar(cfg, nil, &capturePublisher{}); err == nil {
		t.Error("buildRegistrar() should reject an unknown codec")
	}
}
