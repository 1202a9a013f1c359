package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the local registration boundary: it records every composite
// endpoint the bridge has registered, in a Repository fronted by an
// in-memory cache.
//
// Register is idempotent per device identifier; registering the same
// identifier again replaces the previous registration.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Registration // Cached registrations by device identifier
	cacheMu sync.RWMutex             // Protects cache
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates a new registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Registration),
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// RefreshCache reloads all registrations from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	regs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading registrations: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Registration, len(regs))
	for i := range regs {
		r.cache[regs[i].DeviceIdentifier] = regs[i].DeepCopy()
	}

	r.logger.Info("registration cache refreshed", "count", len(regs))
	return nil
}

// Register validates and stores a registration.
func (r *Registry) Register(ctx context.Context, reg *Registration) error {
	if err := ValidateRegistration(reg); err != nil {
		return err
	}

	stored := reg.DeepCopy()
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = r.now()
	}

	if err := r.repo.Upsert(ctx, stored); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
	}

	r.cacheMu.Lock()
	_, replaced := r.cache[stored.DeviceIdentifier]
	r.cache[stored.DeviceIdentifier] = stored
	r.cacheMu.Unlock()

	r.logger.Info("device registered",
		"device_id", stored.DeviceIdentifier,
		"name", stored.DisplayName,
		"children", len(stored.Children),
		"replaced", replaced,
	)
	return nil
}

// Get retrieves a registration by device identifier.
// The returned registration is a deep copy; callers can safely modify it.
func (r *Registry) Get(ctx context.Context, deviceIdentifier string) (*Registration, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[deviceIdentifier]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (another process may share the database)
	reg, err := r.repo.GetByID(ctx, deviceIdentifier)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[deviceIdentifier] = reg.DeepCopy()
	r.cacheMu.Unlock()

	return reg, nil
}

// List returns every cached registration ordered by display name.
func (r *Registry) List() []Registration {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Registration, 0, len(r.cache))
	for _, reg := range r.cache {
		out = append(out, *reg.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].DeviceIdentifier < out[j].DeviceIdentifier
	})
	return out
}

// ListByCapability returns registrations with at least one child of type t.
func (r *Registry) ListByCapability(t capability.Type) []Registration {
	var out []Registration
	for _, reg := range r.List() {
		for _, c := range reg.Children {
			if c.Capability == t {
				out = append(out, reg)
				break
			}
		}
	}
	return out
}

// Unregister removes a registration.
func (r *Registry) Unregister(ctx context.Context, deviceIdentifier string) error {
	if err := r.repo.Delete(ctx, deviceIdentifier); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, deviceIdentifier)
	r.cacheMu.Unlock()

	r.logger.Info("device unregistered", "device_id", deviceIdentifier)
	return nil
}

// Count returns the number of cached registrations.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats summarises registrations by capability type.
func (r *Registry) Stats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	st := Stats{
		Devices:      len(r.cache),
		Capabilities: make(map[capability.Type]int),
	}
	for _, reg := range r.cache {
		st.Children += len(reg.Children)
		for t, n := range reg.CapabilityCounts() {
			st.Capabilities[t] += n
		}
	}
	return st
}
