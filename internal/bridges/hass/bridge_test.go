package hass

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
	"github.com/nerrad567/gray-logic-bridge/internal/discovery"
)

// recordingLogger counts warnings by message.
type recordingLogger struct {
	mu    sync.Mutex
	warns map[string]int
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.warns == nil {
		l.warns = make(map[string]int)
	}
	l.warns[msg]++
}

func (l *recordingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warns[msg]
}

func discoveryPayload(entityID, deviceID, deviceName, name, class string) string {
	return fmt.Sprintf(`{"unique_id":%q,"name":%q,"device_class":%q,"dev":{"ids":[%q],"name":%q}}`,
		entityID, name, class, deviceID, deviceName)
}

type bridgeHarness struct {
	*adapterHarness
	bridge    *Bridge
	registrar *recordingRegistrar
	logger    *recordingLogger
}

func startBridge(t *testing.T) *bridgeHarness {
	t.Helper()

	rec := &recordingRegistrar{}
	logger := &recordingLogger{}
	orch, err := NewOrchestrator(OrchestratorOptions{Registrar: rec, Logger: logger})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	b, err := NewBridge(BridgeOptions{Orchestrator: orch, RootTopic: testRoot, Logger: logger})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	return &bridgeHarness{
		adapterHarness: startAdapter(t, b),
		bridge:         b,
		registrar:      rec,
		logger:         logger,
	}
}

// closeWindow fires the i-th window timer and waits for registration.
func (h *bridgeHarness) closeWindow(t *testing.T, i int) {
	t.Helper()
	before := h.sink.count("window_closed")
	h.timers.fire(i)
	waitFor(t, "window close", func() bool {
		return h.sink.count("window_closed") == before+1
	})
}

func TestNewBridge_Validation(t *testing.T) {
	orch, err := NewOrchestrator(OrchestratorOptions{Registrar: &recordingRegistrar{}})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if _, err := NewBridge(BridgeOptions{RootTopic: testRoot}); err == nil {
		t.Error("NewBridge() without orchestrator should fail")
	}
	if _, err := NewBridge(BridgeOptions{Orchestrator: orch}); err == nil {
		t.Error("NewBridge() without root topic should fail")
	}
}

func TestBridge_RegistersCompositeDevice(t *testing.T) {
	h := startBridge(t)
	h.connect(t)

	h.transport.deliver(t, configTopic("e1"),
		discoveryPayload("e1", "dev-1", "Hall Sensor", "Temperature", "temperature"))
	h.transport.deliver(t, testRoot+"/binary_sensor/e2/config",
		discoveryPayload("e2", "dev-1", "Hall Sensor", "Door", "door"))
	h.closeWindow(t, 0)

	regs := h.registrar.registrations()
	if len(regs) != 1 {
		t.Fatalf("registrations = %d, want 1", len(regs))
	}
	r := regs[0]
	if r.DeviceIdentifier != "dev-1" || len(r.Children) != 2 {
		t.Fatalf("registration = %s with %d children", r.DeviceIdentifier, len(r.Children))
	}
	if r.Children[0].Capability != capability.TypeTemperatureSensor ||
		r.Children[1].Capability != capability.TypeContactSensor {
		t.Errorf("children = %s, %s", r.Children[0].Capability, r.Children[1].Capability)
	}

	st := h.bridge.Status()
	if !st.Connected || st.WindowOpen || st.Connections != 1 {
		t.Errorf("status = %+v", st)
	}
	if st.LastReport == nil || len(st.LastReport.Registered) != 1 || st.LastClosedAt == nil {
		t.Errorf("LastReport = %+v", st.LastReport)
	}
}

func TestBridge_LateDiscoveryMessageIgnored(t *testing.T) {
	h := startBridge(t)
	h.connect(t)

	h.transport.deliver(t, configTopic("e1"),
		discoveryPayload("e1", "dev-1", "Hall Sensor", "Temperature", "temperature"))
	h.closeWindow(t, 0)

	h.transport.deliver(t, configTopic("e3"),
		discoveryPayload("e3", "dev-1", "Hall Sensor", "Humidity", "humidity"))
	waitFor(t, "runtime message", func() bool { return h.bridge.Status().RuntimeMessages == 1 })

	regs := h.registrar.registrations()
	if len(regs) != 1 {
		t.Fatalf("registrations = %d, want 1", len(regs))
	}
	if len(regs[0].Children) != 1 {
		t.Errorf("children = %d, want 1", len(regs[0].Children))
	}
}

func TestBridge_MalformedThenValid(t *testing.T) {
	h := startBridge(t)
	h.connect(t)

	h.transport.deliver(t, configTopic("e1"), "{not json")
	h.transport.deliver(t, configTopic("e1"),
		discoveryPayload("e1", "dev-1", "Hall Sensor", "Temperature", "temperature"))
	h.closeWindow(t, 0)

	if got := h.logger.count("dropping discovery message"); got != 1 {
		t.Errorf("warnings = %d, want 1", got)
	}
	regs := h.registrar.registrations()
	if len(regs) != 1 || len(regs[0].Children) != 1 {
		t.Fatalf("registrations = %+v", regs)
	}
	if st := h.bridge.Status(); st.LastReport.Stats.Rejected != 1 || st.LastReport.Stats.Entities != 1 {
		t.Errorf("stats = %+v", st.LastReport.Stats)
	}
}

func TestBridge_ReconnectStartsNewSession(t *testing.T) {
	h := startBridge(t)
	h.connect(t)

	payload := discoveryPayload("e1", "dev-1", "Hall Sensor", "Temperature", "temperature")
	h.transport.deliver(t, configTopic("e1"), payload)
	h.closeWindow(t, 0)

	h.transport.drop(fmt.Errorf("keepalive timeout"))
	h.transport.reconnect()
	waitFor(t, "second window", func() bool { return h.timers.count() == 2 })

	// Retained config messages are redelivered after every reconnect.
	h.transport.deliver(t, configTopic("e1"), payload)
	h.closeWindow(t, 1)

	regs := h.registrar.registrations()
	if len(regs) != 2 {
		t.Fatalf("registrations = %d, want 2", len(regs))
	}
	if regs[0].SessionID == regs[1].SessionID {
		t.Error("reconnect reused the previous session")
	}
	st := h.bridge.Status()
	if st.Connections != 2 || !st.Connected || st.LastError != "keepalive timeout" {
		t.Errorf("status = %+v", st)
	}
}

func TestBridge_WindowClosedWithoutSession(t *testing.T) {
	rec := &recordingRegistrar{}
	orch, err := NewOrchestrator(OrchestratorOptions{Registrar: rec})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	b, err := NewBridge(BridgeOptions{Orchestrator: orch, RootTopic: testRoot})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	b.HandleWindowClosed(context.Background())

	if len(rec.registrations()) != 0 {
		t.Error("registered without a session")
	}
	if b.Status().LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestBridge_WindowClosedAfterSessionLost(t *testing.T) {
	orch, err := NewOrchestrator(OrchestratorOptions{Registrar: &recordingRegistrar{}})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	collector := discovery.NewCollector()
	b, err := NewBridge(BridgeOptions{Orchestrator: orch, RootTopic: testRoot, Collector: collector})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	b.HandleConnected(context.Background())
	if !b.Status().WindowOpen {
		t.Fatal("window should be open after connect")
	}
	if _, err := collector.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b.HandleWindowClosed(context.Background())

	st := b.Status()
	if st.WindowOpen {
		t.Error("WindowOpen still true after the window closed")
	}
	if st.LastError == "" {
		t.Error("LastError not recorded")
	}
}
