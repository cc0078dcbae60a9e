package dashboard

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/editform"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/export"
	"github.com/joseph-ayodele/ocr-dashboard/internal/extraction"
	"github.com/joseph-ayodele/ocr-dashboard/internal/preview"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
)

// User-facing messages.
const (
	SavedMessage  = "Changes saved successfully!"
	NoEditMessage = "No extracted data to edit. Please upload a document first."
)

// SelectMode switches the active mode and clears pending files, the
// preview, the extraction and the verification panels. Selecting the
// current mode clears the same way. In-flight responses become stale.
func (c *Controller) SelectMode(ctx context.Context, raw string) error {
	mode, err := constants.ParseMode(raw)
	if err != nil {
		return common.NewAppError("INVALID_MODE", err.Error(), common.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.files = make(map[string]entity.File)
	c.preview = nil
	c.extraction = nil
	c.verification = nil
	c.generation++
	c.persistLocked(ctx)
	c.log.Info("dashboard.mode.selected", "mode", string(mode))
	return nil
}

// SelectFile stages f in slot for the active mode, replacing any earlier
// file there.
func (c *Controller) SelectFile(slot string, f entity.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.mode.Slots() {
		if s == slot {
			f.Slot = slot
			c.files[slot] = f
			return nil
		}
	}
	return common.NewAppError("INVALID_SLOT", fmt.Sprintf("mode %s has no %q file", c.mode, slot), common.ErrValidation)
}

// ClearFiles drops every pending file and the preview.
func (c *Controller) ClearFiles() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string]entity.File)
	c.preview = nil
}

// Preview renders the pending files. The result is kept for View unless the
// mode changed meanwhile.
func (c *Controller) Preview(ctx context.Context) preview.Preview {
	c.mu.Lock()
	mode := c.mode
	gen := c.generation
	files := make(map[string]entity.File, len(c.files))
	for k, v := range c.files {
		files[k] = v
	}
	c.mu.Unlock()

	var p preview.Preview
	if c.deps.Previewer != nil {
		p = c.deps.Previewer.Build(ctx, mode, files)
	} else {
		p = preview.Preview{Mode: mode}
	}

	c.mu.Lock()
	if c.generation == gen && c.mode == mode {
		c.preview = &p
	}
	c.mu.Unlock()
	return p
}

// Submit uploads the pending files for the active mode. Missing files fail
// without a request. A response that arrives after a mode switch or a newer
// request is dropped with common.ErrSuperseded.
func (c *Controller) Submit(ctx context.Context) (entity.UploadResult, error) {
	c.mu.Lock()
	mode := c.mode
	var files []entity.File
	for _, slot := range mode.Slots() {
		f, ok := c.files[slot]
		if !ok || len(f.Data) == 0 {
			c.mu.Unlock()
			c.log.Info("dashboard.upload.missing_files", "mode", string(mode), "slot", slot)
			return entity.UploadResult{}, common.NewAppError("MISSING_FILES", mode.MissingFilesMessage(), common.ErrValidation)
		}
		files = append(files, f)
	}
	gen := c.beginLocked()
	c.mu.Unlock()
	defer c.end()

	c.log.Info("dashboard.upload.start", "mode", string(mode), "files", len(files))
	body, err := c.deps.Backend.Upload(ctx, mode, files)
	var res entity.UploadResult
	if err == nil {
		res, err = extraction.DecodeUpload(mode, body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Info("dashboard.upload.superseded", "mode", string(mode))
		return entity.UploadResult{}, common.ErrSuperseded
	}
	if err != nil {
		msg := "Upload failed: " + common.UserMessage(err)
		vv := render.FailureView(msg)
		c.verification = &vv
		c.log.Error("dashboard.upload.failed", "mode", string(mode), "error", err)
		return entity.UploadResult{}, common.NewAppError("UPLOAD_FAILED", msg, err)
	}

	c.applyResultLocked(ctx, res)
	c.log.Info("dashboard.upload.ok",
		"mode", string(mode),
		"record_kind", string(res.Record.Kind()),
		"record_id", res.RecordID,
		"verification", string(res.Verification.Kind),
	)
	return res, nil
}

// applyResultLocked makes res the edit session and redraws both panels.
func (c *Controller) applyResultLocked(ctx context.Context, res entity.UploadResult) {
	c.snapshot = res.Record.Clone()
	c.docType = res.Mode
	c.recordID = res.RecordID
	c.lastVerified = res.Verification

	ev := render.BuildExtractionView(c.snapshot, res.Mode)
	vv := render.BuildVerificationView(res.Verification)
	c.extraction, c.verification = &ev, &vv
	c.persistLocked(ctx)
}

// EditForm builds the edit form for the current snapshot.
func (c *Controller) EditForm() (editform.Form, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return editform.Form{}, common.NewAppError("NO_SNAPSHOT", NoEditMessage, common.ErrNoSnapshot)
	}
	return editform.Build(c.snapshot, c.docType), nil
}

// Notice is a transient message for the user.
type Notice struct {
	Level string
	Text  string
}

// SaveResult reports the outcome of SaveEdits.
type SaveResult struct {
	Notices []Notice
	// Persisted is true when the backend accepted the update.
	Persisted bool
	// PersistErr is the non-fatal backend failure, if any.
	PersistErr error
}

// SaveEdits applies form values to the snapshot and redraws the extraction
// panel. With a known record id the result is also sent to the backend; a
// backend failure is reported in the result and the local edit is kept.
func (c *Controller) SaveEdits(ctx context.Context, values map[string]string) (SaveResult, error) {
	c.mu.Lock()
	if c.snapshot == nil {
		c.mu.Unlock()
		return SaveResult{}, common.NewAppError("NO_SNAPSHOT", NoEditMessage, common.ErrNoSnapshot)
	}
	if err := editform.Apply(c.snapshot, c.docType, values); err != nil {
		c.mu.Unlock()
		c.log.Warn("dashboard.edit.rejected", "error", err)
		return SaveResult{}, err
	}
	ev := render.BuildExtractionView(c.snapshot, c.docType)
	c.extraction = &ev
	c.persistLocked(ctx)

	id, mode := c.recordID, c.docType
	rec := c.snapshot.Clone()
	c.mu.Unlock()

	res := SaveResult{Notices: []Notice{{Level: "success", Text: SavedMessage}}}
	c.log.Info("dashboard.edit.applied", "fields", len(values), "record_id", id)
	if id == "" {
		return res, nil
	}

	if _, err := c.deps.Backend.UpdateRecord(ctx, id, rec, mode); err != nil {
		c.log.Error("dashboard.edit.persist_failed", "record_id", id, "error", err)
		res.PersistErr = common.NewAppError("PERSIST_FAILED", "Failed to save to backend: "+common.UserMessage(err), fmt.Errorf("%w: %w", common.ErrPersistence, err))
		res.Notices = append(res.Notices, Notice{Level: "danger", Text: common.UserMessage(res.PersistErr)})
		return res, nil
	}
	res.Persisted = true
	return res, nil
}

// Export builds format from the current snapshot.
func (c *Controller) Export(ctx context.Context, format constants.ExportFormat) (export.File, error) {
	c.mu.Lock()
	var rec entity.Record
	if c.snapshot != nil {
		rec = c.snapshot.Clone()
	}
	c.mu.Unlock()

	if rec == nil {
		return export.File{}, common.NewAppError("NO_SNAPSHOT", export.NoDataMessage, common.ErrNoSnapshot)
	}
	return c.deps.Exporter.Export(ctx, format, rec)
}

// History fetches the user's past uploads.
func (c *Controller) History(ctx context.Context) ([]entity.HistoryEntry, error) {
	body, err := c.deps.Backend.History(ctx)
	if err != nil {
		return nil, common.NewAppError("HISTORY_FAILED", "Failed to load history: "+common.UserMessage(err), err)
	}
	entries, err := extraction.DecodeHistory(body)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.history = entries
	c.mu.Unlock()
	return entries, nil
}

// LoadRecord reopens a stored record as the edit session. Its doc type
// selects the mode, and pending files are dropped.
func (c *Controller) LoadRecord(ctx context.Context, id string) (entity.UploadResult, error) {
	c.mu.Lock()
	gen := c.beginLocked()
	c.mu.Unlock()
	defer c.end()

	body, err := c.deps.Backend.GetRecord(ctx, id)
	var res entity.UploadResult
	if err == nil {
		res, err = extraction.DecodeStoredRecord(body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Info("dashboard.record.superseded", "record_id", id)
		return entity.UploadResult{}, common.ErrSuperseded
	}
	if err != nil {
		c.log.Error("dashboard.record.failed", "record_id", id, "error", err)
		return entity.UploadResult{}, common.NewAppError("LOAD_FAILED", "Failed to load record: "+common.UserMessage(err), err)
	}
	if res.RecordID == "" {
		res.RecordID = id
	}

	c.mode = res.Mode
	c.files = make(map[string]entity.File)
	c.preview = nil
	c.applyResultLocked(ctx, res)
	c.log.Info("dashboard.record.loaded", "record_id", id, "mode", string(res.Mode))
	return res, nil
}
