package discovery

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session is the device/entity graph built during one discovery window.
//
// A session belongs to exactly one connection. It is mutable until Freeze,
// which hands out an immutable Snapshot and rejects every later mutation.
// A Session is owned by a single goroutine (the Collector's caller) and is
// not safe for concurrent use.
type Session struct {
	id       string
	root     string
	openedAt time.Time

	devices  map[string]*DeviceRecord
	entities map[string]*EntityRecord
	nextSeq  int

	rejected   int
	duplicates int

	frozen bool
}

// NewSession opens an empty session for the given discovery root.
func NewSession(root string) *Session {
	return &Session{
		id:       uuid.NewString(),
		root:     root,
		openedAt: time.Now().UTC(),
		devices:  make(map[string]*DeviceRecord),
		entities: make(map[string]*EntityRecord),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// RootTopic returns the discovery root this session collects under.
func (s *Session) RootTopic() string { return s.root }

// Frozen reports whether the window has closed.
func (s *Session) Frozen() bool { return s.frozen }

// Len returns the number of recorded entities.
func (s *Session) Len() int { return len(s.entities) }

// Add records an entity, creating its device on first sighting.
//
// The first record for an entity id wins; later ones return
// ErrDuplicateEntity and leave the session unchanged. A device's display
// name is taken from the entity that created it.
func (s *Session) Add(e *EntityRecord) error {
	if s.frozen {
		return ErrSessionFrozen
	}
	if _, exists := s.entities[e.EntityID]; exists {
		s.duplicates++
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, e.EntityID)
	}

	dev, ok := s.devices[e.DeviceIdentifier]
	if !ok {
		dev = &DeviceRecord{
			DeviceIdentifier: e.DeviceIdentifier,
			DisplayName:      e.DeviceName,
			Entities:         make(map[string]*EntityRecord),
		}
		s.devices[e.DeviceIdentifier] = dev
	}

	e.seq = s.nextSeq
	s.nextSeq++
	s.entities[e.EntityID] = e
	dev.Entities[e.EntityID] = e
	return nil
}

// Device returns the live record for a device identifier.
func (s *Session) Device(deviceIdentifier string) (*DeviceRecord, bool) {
	d, ok := s.devices[deviceIdentifier]
	return d, ok
}

// Entity returns the live record for an entity id.
func (s *Session) Entity(entityID string) (*EntityRecord, bool) {
	e, ok := s.entities[entityID]
	return e, ok
}

func (s *Session) recordRejected() {
	s.rejected++
}

// Freeze closes the session and returns its read-only snapshot.
// It succeeds once; later calls return ErrSessionFrozen.
func (s *Session) Freeze() (*Snapshot, error) {
	if s.frozen {
		return nil, ErrSessionFrozen
	}
	s.frozen = true

	devices := make([]*DeviceRecord, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceIdentifier < devices[j].DeviceIdentifier
	})

	return &Snapshot{
		id:         s.id,
		root:       s.root,
		openedAt:   s.openedAt,
		closedAt:   time.Now().UTC(),
		devices:    devices,
		entities:   len(s.entities),
		rejected:   s.rejected,
		duplicates: s.duplicates,
	}, nil
}

// Snapshot is the frozen result of a discovery window. It is immutable and
// safe to share between goroutines; accessors return copies.
type Snapshot struct {
	id       string
	root     string
	openedAt time.Time
	closedAt time.Time

	devices    []*DeviceRecord
	entities   int
	rejected   int
	duplicates int
}

// SnapshotStats summarises a snapshot.
type SnapshotStats struct {
	SessionID  string        `json:"session_id"`
	RootTopic  string        `json:"root_topic"`
	OpenedAt   time.Time     `json:"opened_at"`
	ClosedAt   time.Time     `json:"closed_at"`
	Window     time.Duration `json:"window_ns"`
	Devices    int           `json:"devices"`
	Entities   int           `json:"entities"`
	Rejected   int           `json:"rejected"`
	Duplicates int           `json:"duplicates"`
}

// ID returns the id of the session the snapshot was taken from.
func (s *Snapshot) ID() string { return s.id }

// RootTopic returns the discovery root.
func (s *Snapshot) RootTopic() string { return s.root }

// Devices returns copies of the devices, sorted by identifier.
func (s *Snapshot) Devices() []*DeviceRecord {
	out := make([]*DeviceRecord, len(s.devices))
	for i, d := range s.devices {
		out[i] = d.DeepCopy()
	}
	return out
}

// Device returns a copy of one device.
func (s *Snapshot) Device(deviceIdentifier string) (*DeviceRecord, bool) {
	i := sort.Search(len(s.devices), func(i int) bool {
		return s.devices[i].DeviceIdentifier >= deviceIdentifier
	})
	if i < len(s.devices) && s.devices[i].DeviceIdentifier == deviceIdentifier {
		return s.devices[i].DeepCopy(), true
	}
	return nil, false
}

// Stats returns the snapshot's counters.
func (s *Snapshot) Stats() SnapshotStats {
	return SnapshotStats{
		SessionID:  s.id,
		RootTopic:  s.root,
		OpenedAt:   s.openedAt,
		ClosedAt:   s.closedAt,
		Window:     s.closedAt.Sub(s.openedAt),
		Devices:    len(s.devices),
		Entities:   s.entities,
		Rejected:   s.rejected,
		Duplicates: s.duplicates,
	}
}
