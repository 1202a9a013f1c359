package device

import (
	"context"
	"errors"
	"fmt"
)

// Registrar is the registration boundary: it turns one composite device
// model into a live endpoint. Implementations must be idempotent per
// device identifier.
type Registrar interface {
	Register(ctx context.Context, r *Registration) error
}

// RegistrarFunc adapts a function to the Registrar interface.
type RegistrarFunc func(ctx context.Context, r *Registration) error

// Register calls f(ctx, r).
func (f RegistrarFunc) Register(ctx context.Context, r *Registration) error {
	return f(ctx, r)
}

// Fanout submits every registration to each registrar in order.
// All registrars are tried; their errors are joined.
type Fanout []Registrar

// Register implements Registrar.
func (f Fanout) Register(ctx context.Context, r *Registration) error {
	var errs []error
	for i, reg := range f {
		if reg == nil {
			continue
		}
		if err := reg.Register(ctx, r.DeepCopy()); err != nil {
			errs = append(errs, fmt.Errorf("registrar %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
