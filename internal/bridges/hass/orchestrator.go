package hass

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
	"github.com/nerrad567/gray-logic-bridge/internal/device"
	"github.com/nerrad567/gray-logic-bridge/internal/discovery"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/influxdb"
)

// Event channels broadcast by the orchestrator.
const (
	EventDeviceRegistered   = "bridge.device_registered"
	EventRegistrationFailed = "bridge.registration_failed"
	EventSessionClosed      = "bridge.session_closed"
)

// Metadata is the static descriptive data every registration carries.
type Metadata struct {
	Vendor          string
	Model           string
	SerialPrefix    string
	FirmwareVersion string

	// UseOriginMetadata prefers the device block's manufacturer, model,
	// serial_number and sw_version when the first entity supplies them.
	UseOriginMetadata bool
}

// MetricsRecorder receives per-session and per-registration measurements.
// *influxdb.Client satisfies it.
type MetricsRecorder interface {
	WriteSessionMetric(m influxdb.SessionMetric)
	WriteRegistrationMetric(deviceIdentifier string, children int, ok bool)
}

// EventPublisher broadcasts bridge events to status subscribers.
// *api.Hub satisfies it.
type EventPublisher interface {
	Broadcast(channel string, payload any)
}

// OrchestratorOptions holds configuration for creating an orchestrator.
type OrchestratorOptions struct {
	// Registrar is the registration boundary. Required.
	Registrar device.Registrar

	Metadata Metadata

	// Logger is an optional structured logger.
	Logger Logger

	// Metrics is optional.
	Metrics MetricsRecorder

	// Events is optional.
	Events EventPublisher
}

// Report is the outcome of registering one session.
type Report struct {
	SessionID  string                  `json:"session_id"`
	Registered []string                `json:"registered"`
	Failed     map[string]error        `json:"-"`
	Stats      discovery.SnapshotStats `json:"stats"`
}

// FailedIDs returns the identifiers of devices that were not registered, sorted.
func (r Report) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Orchestrator turns a frozen discovery snapshot into one composite
// registration per device.
type Orchestrator struct {
	registrar device.Registrar
	meta      Metadata
	logger    Logger
	metrics   MetricsRecorder
	events    EventPublisher
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Orchestrator{
		registrar: opts.Registrar,
		meta:      opts.Metadata,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		events:    opts.Events,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// RegisterSession submits every device of snap to the registrar.
//
// Devices are independent: a rejected device is logged and recorded in the
// report, and the remaining devices are still submitted. Nothing is rolled
// back.
func (o *Orchestrator) RegisterSession(ctx context.Context, snap *discovery.Snapshot) Report {
	stats := snap.Stats()
	report := Report{
		SessionID: snap.ID(),
		Failed:    make(map[string]error),
		Stats:     stats,
	}

	for _, dev := range snap.Devices() {
		if err := ctx.Err(); err != nil {
			report.Failed[dev.DeviceIdentifier] = err
			continue
		}

		reg := o.BuildRegistration(snap.ID(), dev)
		err := o.registrar.Register(ctx, reg)
		o.recordRegistration(reg, err)

		if err != nil {
			o.logger.Warn("device registration failed",
				"device_id", dev.DeviceIdentifier,
				"name", dev.DisplayName,
				"error", err,
			)
			report.Failed[dev.DeviceIdentifier] = err
			continue
		}
		report.Registered = append(report.Registered, dev.DeviceIdentifier)
	}

	if o.metrics != nil {
		o.metrics.WriteSessionMetric(influxdb.SessionMetric{
			SessionID:  stats.SessionID,
			RootTopic:  stats.RootTopic,
			Devices:    stats.Devices,
			Entities:   stats.Entities,
			Rejected:   stats.Rejected,
			Duplicates: stats.Duplicates,
			Window:     stats.Window,
		})
	}
	if o.events != nil {
		o.events.Broadcast(EventSessionClosed, map[string]any{
			"session_id": report.SessionID,
			"registered": len(report.Registered),
			"failed":     report.FailedIDs(),
			"entities":   stats.Entities,
			"rejected":   stats.Rejected,
		})
	}

	o.logger.Info("discovery session registered",
		"session_id", report.SessionID,
		"devices", stats.Devices,
		"registered", len(report.Registered),
		"failed", len(report.Failed),
	)
	return report
}

// BuildRegistration builds the composite registration for one device:
// one child per entity, in discovery order, typed by capability.Classify
// and named by the entity's display name.
func (o *Orchestrator) BuildRegistration(sessionID string, dev *discovery.DeviceRecord) *device.Registration {
	entities := dev.OrderedEntities()

	reg := &device.Registration{
		DeviceIdentifier: dev.DeviceIdentifier,
		DisplayName:      deviceName(dev),
		Vendor:           o.meta.Vendor,
		Model:            o.meta.Model,
		SerialNumber:     serialNumber(o.meta.SerialPrefix, dev.DeviceIdentifier),
		FirmwareVersion:  o.meta.FirmwareVersion,
		SessionID:        sessionID,
		RegisteredAt:     o.now(),
		Children:         make([]device.Child, 0, len(entities)),
	}

	if o.meta.UseOriginMetadata && len(entities) > 0 {
		applyOrigin(reg, entities[0])
	}

	names := childNames(entities)
	for i, e := range entities {
		t := capability.Classify(e)
		reg.Children = append(reg.Children, device.Child{
			Name:         names[i],
			EntityID:     e.EntityID,
			Capability:   t,
			DeviceTypeID: t.DeviceTypeID(),
		})
	}
	return reg
}

func (o *Orchestrator) recordRegistration(reg *device.Registration, err error) {
	if o.metrics != nil {
		o.metrics.WriteRegistrationMetric(reg.DeviceIdentifier, len(reg.Children), err == nil)
	}
	if o.events == nil {
		return
	}
	if err != nil {
		o.events.Broadcast(EventRegistrationFailed, map[string]any{
			"device_id": reg.DeviceIdentifier,
			"error":     err.Error(),
		})
		return
	}
	o.events.Broadcast(EventDeviceRegistered, reg)
}

// deviceName is the device's display name cut to device.MaxNameLength,
// or its identifier when the name is blank.
func deviceName(dev *discovery.DeviceRecord) string {
	name := dev.DisplayName
	if strings.TrimSpace(name) == "" {
		name = dev.DeviceIdentifier
	}
	return truncate(name, device.MaxNameLength)
}

// childNames keys children by display name. Entities sharing a display
// name within one device get their entity id appended. Every name fits
// device.MaxNameLength and is unique within the device.
func childNames(entities []*discovery.EntityRecord) []string {
	counts := make(map[string]int, len(entities))
	for _, e := range entities {
		counts[childLabel(e)]++
	}

	names := make([]string, len(entities))
	used := make(map[string]struct{}, len(entities))
	for i, e := range entities {
		label := childLabel(e)
		name := truncate(label, device.MaxNameLength)
		if counts[label] > 1 {
			name = qualifiedName(label, e.EntityID)
		}
		name = uniqueName(name, used)
		used[name] = struct{}{}
		names[i] = name
	}
	return names
}

// childLabel is the entity's display name, or its id when the name is blank.
func childLabel(e *discovery.EntityRecord) string {
	if name := strings.TrimSpace(e.DisplayName); name != "" {
		return name
	}
	return e.EntityID
}

// qualifiedName returns "label (entityID)", shortening the label first.
// Long ids keep their tail, where gateway ids differ.
func qualifiedName(label, entityID string) string {
	suffix := " (" + tail(entityID, device.MaxNameLength/2) + ")"
	return truncate(label, device.MaxNameLength-len(suffix)) + suffix
}

// uniqueName appends " #2", " #3", ... until name is not in used.
func uniqueName(name string, used map[string]struct{}) string {
	if _, taken := used[name]; !taken {
		return name
	}
	for n := 2; ; n++ {
		suffix := " #" + strconv.Itoa(n)
		candidate := truncate(name, device.MaxNameLength-len(suffix)) + suffix
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

func serialNumber(prefix, deviceIdentifier string) string {
	return truncate(prefix+deviceIdentifier, device.MaxSerialLength)
}

// truncate cuts s to at most maxBytes without splitting a UTF-8 sequence.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// tail returns the last maxBytes of s without splitting a UTF-8 sequence.
func tail(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	start := len(s) - maxBytes
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func applyOrigin(reg *device.Registration, e *discovery.EntityRecord) {
	if v := e.DeviceAttribute("manufacturer"); v != "" {
		reg.Vendor = truncate(v, device.MaxMetadataLength)
	}
	if v := e.DeviceAttribute("model"); v != "" {
		reg.Model = truncate(v, device.MaxMetadataLength)
	}
	if v := e.DeviceAttribute("sw_version"); v != "" {
		reg.FirmwareVersion = truncate(v, device.MaxMetadataLength)
	}
	if v := e.DeviceAttribute("serial_number"); v != "" {
		reg.SerialNumber = serialNumber("", v)
	}
}
