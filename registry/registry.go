// Package registry remembers the structural id of every struct type it is
// shown, so that a later run can tell whether a spec still reads the same
// bytes as the one that wrote them.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/structwire"
)

// MemoryPath opens a private in-memory registry.
const MemoryPath = ":memory:"

// ErrNotFound is returned by Lookup when a type was never recorded.
var ErrNotFound = errors.New("registry: type not recorded")

// Status is the outcome of comparing a spec against its recorded snapshot.
type Status int

const (
	// Unknown means the type name has never been recorded.
	Unknown Status = iota
	// Compatible means the latest snapshot carries the same structural id.
	Compatible
	// Drifted means the shape changed since the latest snapshot.
	Drifted
)

func (s Status) String() string {
	switch s {
	case Compatible:
		return "compatible"
	case Drifted:
		return "drifted"
	default:
		return "unknown"
	}
}

// Entry is one recorded snapshot of a struct type.
type Entry struct {
	SnapshotID   uuid.UUID
	TypeName     string
	StructuralID uint64
	IDL          string
	RecordedAt   time.Time
}

// CheckResult reports how a spec compares to the latest snapshot.
type CheckResult struct {
	Status   Status
	Current  uint64
	Recorded Entry
}

// Registry stores snapshots in a sqlite database.
type Registry struct {
	db   *sql.DB
	path string
}

// Open opens (creating when needed) the registry database at path.
func Open(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path cannot be empty")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create registry directory for '%s': %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry at '%s': %w", path, err)
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry connection test failed for '%s': %w", path, err)
	}

	r := &Registry{db: db, path: path}
	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an already opened sqlite database.
func New(db *sql.DB) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("registry database cannot be nil")
	}
	r := &Registry{db: db, path: "<external>"}
	if err := r.initialize(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			snapshot_id TEXT PRIMARY KEY,
			type_name TEXT NOT NULL,
			structural_id TEXT NOT NULL,
			idl TEXT NOT NULL,
			recorded_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_type ON snapshots(type_name);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create registry schema in '%s': %w", r.path, err)
	}
	return nil
}

// Close releases the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Record stores a snapshot of spec unless the latest snapshot for the
// same type already carries its structural id. It returns the snapshot
// now current and whether a new one was written.
func (r *Registry) Record(ctx context.Context, spec *structwire.StructSpec) (Entry, bool, error) {
	if spec == nil {
		return Entry{}, false, fmt.Errorf("%w: cannot record a nil specification", structwire.ErrInvalidSpec)
	}
	latest, err := r.Lookup(ctx, spec.Name())
	switch {
	case err == nil && latest.StructuralID == spec.StructuralID():
		return latest, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Entry{}, false, err
	}

	entry := Entry{
		SnapshotID:   uuid.New(),
		TypeName:     spec.Name(),
		StructuralID: spec.StructuralID(),
		IDL:          spec.IDL(),
		RecordedAt:   time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (snapshot_id, type_name, structural_id, idl, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.SnapshotID.String(), entry.TypeName, formatID(entry.StructuralID), entry.IDL, entry.RecordedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to record snapshot of '%s': %w", entry.TypeName, err)
	}
	return entry, true, nil
}

// Lookup returns the latest snapshot recorded for typeName.
func (r *Registry) Lookup(ctx context.Context, typeName string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT snapshot_id, type_name, structural_id, idl, recorded_at FROM snapshots
		WHERE type_name = ?
		ORDER BY rowid DESC LIMIT 1
	`, typeName)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: '%s'", ErrNotFound, typeName)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to look up '%s': %w", typeName, err)
	}
	return entry, nil
}

// History lists every snapshot of typeName, oldest first.
func (r *Registry) History(ctx context.Context, typeName string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT snapshot_id, type_name, structural_id, idl, recorded_at FROM snapshots
		WHERE type_name = ?
		ORDER BY rowid ASC
	`, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots of '%s': %w", typeName, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot of '%s': %w", typeName, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Check compares spec against the latest snapshot of its type name.
func (r *Registry) Check(ctx context.Context, spec *structwire.StructSpec) (CheckResult, error) {
	if spec == nil {
		return CheckResult{}, fmt.Errorf("%w: cannot check a nil specification", structwire.ErrInvalidSpec)
	}
	result := CheckResult{Current: spec.StructuralID()}
	latest, err := r.Lookup(ctx, spec.Name())
	if errors.Is(err, ErrNotFound) {
		result.Status = Unknown
		return result, nil
	}
	if err != nil {
		return CheckResult{}, err
	}

	result.Recorded = latest
	if latest.StructuralID == result.Current {
		result.Status = Compatible
	} else {
		result.Status = Drifted
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		entry      Entry
		snapshotID string
		id         string
	)
	if err := s.Scan(&snapshotID, &entry.TypeName, &id, &entry.IDL, &entry.RecordedAt); err != nil {
		return Entry{}, err
	}
	var err error
	if entry.SnapshotID, err = uuid.Parse(snapshotID); err != nil {
		return Entry{}, fmt.Errorf("invalid snapshot id '%s': %w", snapshotID, err)
	}
	if entry.StructuralID, err = strconv.ParseUint(id, 16, 64); err != nil {
		return Entry{}, fmt.Errorf("invalid structural id '%s': %w", id, err)
	}
	return entry, nil
}

func formatID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}
