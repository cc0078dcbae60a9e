// Package dashboard holds the document workflow controller: one per browser
// session, owning the active mode, pending files, the edit snapshot and the
// panels derived from it.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/export"
	"github.com/joseph-ayodele/ocr-dashboard/internal/preview"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
	"github.com/joseph-ayodele/ocr-dashboard/internal/session"
)

// Backend is the subset of the OCR service the controller calls.
type Backend interface {
	Upload(ctx context.Context, mode constants.Mode, files []entity.File) ([]byte, error)
	UpdateRecord(ctx context.Context, id string, record entity.Record, mode constants.Mode) ([]byte, error)
	History(ctx context.Context) ([]byte, error)
	GetRecord(ctx context.Context, id string) ([]byte, error)
}

// Previewer renders previews of pending files.
type Previewer interface {
	Build(ctx context.Context, mode constants.Mode, files map[string]entity.File) preview.Preview
}

// Exporter builds export files from a record.
type Exporter interface {
	Export(ctx context.Context, format constants.ExportFormat, rec entity.Record) (export.File, error)
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Backend   Backend
	Previewer Previewer
	Exporter  Exporter
	// Store is optional; without it sessions live only in memory.
	Store  session.Store
	Logger *slog.Logger
}

// Controller is the per-session workflow state machine. Methods are safe for
// concurrent use; backend I/O runs without holding the lock.
type Controller struct {
	id   string
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	mode  constants.Mode
	files map[string]entity.File

	preview      *preview.Preview
	extraction   *render.ExtractionView
	verification *render.VerificationView

	// edit session
	snapshot     entity.Record
	docType      constants.Mode
	recordID     string
	lastVerified entity.Verification

	history []entity.HistoryEntry

	// generation is advanced by every mode switch and request; a response
	// is only applied if the generation it started with is still current.
	generation uint64
	inflight   int
}

// New returns a controller for session id in the default (ID card) mode.
func New(id string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		id:    id,
		deps:  deps,
		log:   logger.With("session_id", id),
		mode:  constants.ModeCIN,
		files: make(map[string]entity.File),
	}
}

func (c *Controller) ID() string { return c.id }

// Restore reloads the persisted snapshot, if there is one.
func (c *Controller) Restore(ctx context.Context) error {
	if c.deps.Store == nil {
		return nil
	}
	snap, err := c.deps.Store.Load(ctx, c.id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Mode != "" {
		c.mode = snap.Mode
	}
	if snap.Record != nil {
		docType := snap.DocType
		if docType == "" {
			docType = snap.Mode
		}
		c.snapshot = snap.Record
		c.docType = docType
		c.recordID = snap.RecordID
		c.lastVerified = snap.Verification
		// A mode switch after the upload cleared the panels; keep them cleared.
		if docType == c.mode {
			ev := render.BuildExtractionView(snap.Record, docType)
			vv := render.BuildVerificationView(snap.Verification)
			c.extraction, c.verification = &ev, &vv
		}
	}
	c.log.Info("dashboard.session.restored", "mode", string(c.mode), "doc_type", string(c.docType), "has_record", snap.Record != nil)
	return nil
}

// persistLocked writes the edit session to the store. Store failures are
// logged; the in-memory session stays authoritative.
func (c *Controller) persistLocked(ctx context.Context) {
	if c.deps.Store == nil {
		return
	}
	snap := session.Snapshot{
		Mode:         c.mode,
		RecordID:     c.recordID,
		Verification: c.lastVerified,
	}
	if c.snapshot != nil {
		snap.Record = c.snapshot
		snap.DocType = c.docType
	}
	if err := c.deps.Store.Save(ctx, c.id, snap); err != nil {
		c.log.Warn("dashboard.session.persist_error", "error", err)
	}
}

// beginLocked registers an in-flight request and returns its generation token.
func (c *Controller) beginLocked() uint64 {
	c.generation++
	c.inflight++
	return c.generation
}

func (c *Controller) end() {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
}
