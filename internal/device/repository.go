package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
)

// Repository defines the interface for registration persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Upsert stores a registration, replacing any previous one with the
	// same device identifier together with its children.
	Upsert(ctx context.Context, r *Registration) error

	// GetByID retrieves a registration by device identifier.
	// Returns ErrDeviceNotFound if it does not exist.
	GetByID(ctx context.Context, deviceIdentifier string) (*Registration, error)

	// List retrieves all registrations ordered by display name.
	List(ctx context.Context) ([]Registration, error)

	// Delete removes a registration and its children.
	// Returns ErrDeviceNotFound if it does not exist.
	Delete(ctx context.Context, deviceIdentifier string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert stores a registration and replaces its children in one transaction.
func (r *SQLiteRepository) Upsert(ctx context.Context, reg *Registration) error {
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrations (
			device_identifier, display_name, vendor, model, serial_number,
			firmware_version, session_id, registered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_identifier) DO UPDATE SET
			display_name = excluded.display_name,
			vendor = excluded.vendor,
			model = excluded.model,
			serial_number = excluded.serial_number,
			firmware_version = excluded.firmware_version,
			session_id = excluded.session_id,
			registered_at = excluded.registered_at`,
		reg.DeviceIdentifier,
		reg.DisplayName,
		reg.Vendor,
		reg.Model,
		reg.SerialNumber,
		reg.FirmwareVersion,
		reg.SessionID,
		reg.RegisteredAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting registration: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM registration_children WHERE device_identifier = ?", reg.DeviceIdentifier,
	); err != nil {
		return fmt.Errorf("clearing children: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO registration_children (
			device_identifier, position, name, entity_id, capability, device_type_id
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing child insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range reg.Children {
		if _, err := stmt.ExecContext(ctx,
			reg.DeviceIdentifier, i, c.Name, c.EntityID, string(c.Capability), int64(c.DeviceTypeID),
		); err != nil {
			return fmt.Errorf("inserting child %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing registration: %w", err)
	}
	return nil
}

// GetByID retrieves a registration by device identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, deviceIdentifier string) (*Registration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT device_identifier, display_name, vendor, model, serial_number,
			firmware_version, session_id, registered_at
		FROM registrations
		WHERE device_identifier = ?`, deviceIdentifier)

	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying registration: %w", err)
	}

	children, err := r.children(ctx, reg.DeviceIdentifier)
	if err != nil {
		return nil, err
	}
	reg.Children = children
	return reg, nil
}

// List retrieves all registrations with their children.
func (r *SQLiteRepository) List(ctx context.Context) ([]Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_identifier, display_name, vendor, model, serial_number,
			firmware_version, session_id, registered_at
		FROM registrations
		ORDER BY display_name, device_identifier`)
	if err != nil {
		return nil, fmt.Errorf("querying registrations: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registrations: %w", err)
	}
	rows.Close()

	all, err := r.allChildren(ctx)
	if err != nil {
		return nil, err
	}
	for i := range regs {
		regs[i].Children = all[regs[i].DeviceIdentifier]
	}
	return regs, nil
}

// Delete removes a registration; children go with it via ON DELETE CASCADE.
func (r *SQLiteRepository) Delete(ctx context.Context, deviceIdentifier string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Children are removed explicitly so deletes work without foreign_keys=ON.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM registration_children WHERE device_identifier = ?", deviceIdentifier,
	); err != nil {
		return fmt.Errorf("deleting children: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM registrations WHERE device_identifier = ?", deviceIdentifier)
	if err != nil {
		return fmt.Errorf("deleting registration: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) children(ctx context.Context, deviceIdentifier string) ([]Child, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_identifier, name, entity_id, capability, device_type_id
		FROM registration_children
		WHERE device_identifier = ?
		ORDER BY position`, deviceIdentifier)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()

	byDevice, err := scanChildren(rows)
	if err != nil {
		return nil, err
	}
	return byDevice[deviceIdentifier], nil
}

func (r *SQLiteRepository) allChildren(ctx context.Context) (map[string][]Child, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_identifier, name, entity_id, capability, device_type_id
		FROM registration_children
		ORDER BY device_identifier, position`)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()

	return scanChildren(rows)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*Registration, error) {
	var reg Registration
	var registeredAt string
	if err := row.Scan(
		&reg.DeviceIdentifier,
		&reg.DisplayName,
		&reg.Vendor,
		&reg.Model,
		&reg.SerialNumber,
		&reg.FirmwareVersion,
		&reg.SessionID,
		&registeredAt,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, registeredAt)
	if err != nil {
		return nil, fmt.Errorf("parsing registered_at: %w", err)
	}
	reg.RegisteredAt = t
	return &reg, nil
}

func scanChildren(rows *sql.Rows) (map[string][]Child, error) {
	out := make(map[string][]Child)
	for rows.Next() {
		var (
			deviceID string
			c        Child
			capType  string
			typeID   int64
		)
		if err := rows.Scan(&deviceID, &c.Name, &c.EntityID, &capType, &typeID); err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		c.Capability = capability.Type(capType)
		c.DeviceTypeID = uint32(typeID) //nolint:gosec // written from a uint32
		out[deviceID] = append(out[deviceID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating children: %w", err)
	}
	return out, nil
}
