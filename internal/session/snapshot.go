// Package session persists dashboard edit sessions so a browser keeps its
// extraction across daemon restarts.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/extraction"
)

// Snapshot is the persisted part of an edit session.
type Snapshot struct {
	// Mode is the selector's current mode. DocType is the mode Record was
	// extracted under and is empty when there is no record.
	Mode         constants.Mode
	DocType      constants.Mode
	RecordID     string
	Record       entity.Record
	Verification entity.Verification
	UpdatedAt    time.Time
}

// Store keeps snapshots by session id.
type Store interface {
	// Load returns common.ErrNotFound when id has no snapshot.
	Load(ctx context.Context, id string) (Snapshot, error)
	Save(ctx context.Context, id string, snap Snapshot) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// encoded is the storage form of a Snapshot.
type encoded struct {
	Mode         string
	DocType      string
	RecordID     string
	Kind         string
	Record       []byte
	Verification []byte
	UpdatedAt    time.Time
}

func encode(snap Snapshot) (encoded, error) {
	e := encoded{
		Mode:         string(snap.Mode),
		DocType:      string(snap.DocType),
		RecordID:     snap.RecordID,
		Verification: snap.Verification.Raw,
		UpdatedAt:    snap.UpdatedAt,
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	if snap.Record != nil {
		b, err := json.Marshal(snap.Record)
		if err != nil {
			return encoded{}, fmt.Errorf("encode record: %w", err)
		}
		e.Kind = string(snap.Record.Kind())
		e.Record = b
	}
	return e, nil
}

func decode(e encoded) (Snapshot, error) {
	snap := Snapshot{
		Mode:         constants.Mode(e.Mode),
		DocType:      constants.Mode(e.DocType),
		RecordID:     e.RecordID,
		Verification: extraction.DecodeVerification(e.Verification),
		UpdatedAt:    e.UpdatedAt,
	}
	if len(e.Record) == 0 {
		return snap, nil
	}
	switch entity.RecordKind(e.Kind) {
	case entity.KindPaginated:
		rec := &entity.PaginatedRecord{}
		if err := rec.UnmarshalJSON(e.Record); err != nil {
			return Snapshot{}, fmt.Errorf("decode record: %w", err)
		}
		snap.Record = rec
	default:
		rec := &entity.FlatRecord{}
		if err := rec.UnmarshalJSON(e.Record); err != nil {
			return Snapshot{}, fmt.Errorf("decode record: %w", err)
		}
		snap.Record = rec
	}
	return snap, nil
}

// Open returns the store named by dsn: "memory", "sqlite:<path>" or a
// postgres:// URL.
func Open(ctx context.Context, dsn string, opts ...SQLOption) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), opts...)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, opts...)
	}
	return nil, fmt.Errorf("unsupported session store %q", dsn)
}
