package dashboard

import (
	"sort"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/preview"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
)

// PendingFile is a staged file as shown next to its input.
type PendingFile struct {
	Slot string
	Name string
	Size int
}

// View is a consistent copy of everything the dashboard draws.
type View struct {
	SessionID    string
	Mode         constants.Mode
	Busy         bool
	Pending      []PendingFile
	Preview      *preview.Preview
	Extraction   *render.ExtractionView
	Verification *render.VerificationView
	HasSnapshot  bool
	RecordID     string
	History      []entity.HistoryEntry
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		SessionID:   c.id,
		Mode:        c.mode,
		Busy:        c.inflight > 0,
		HasSnapshot: c.snapshot != nil,
		RecordID:    c.recordID,
		History:     append([]entity.HistoryEntry(nil), c.history...),
	}
	for slot, f := range c.files {
		v.Pending = append(v.Pending, PendingFile{Slot: slot, Name: f.Name, Size: len(f.Data)})
	}
	order := map[string]int{}
	for i, s := range c.mode.Slots() {
		order[s] = i
	}
	sort.Slice(v.Pending, func(i, j int) bool { return order[v.Pending[i].Slot] < order[v.Pending[j].Slot] })

	if c.preview != nil {
		p := *c.preview
		v.Preview = &p
	}
	if c.extraction != nil {
		e := *c.extraction
		v.Extraction = &e
	}
	if c.verification != nil {
		vv := *c.verification
		v.Verification = &vv
	}
	return v
}

// Snapshot returns a deep copy of the edit session record, or nil.
func (c *Controller) Snapshot() (entity.Record, constants.Mode, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil, c.mode, ""
	}
	return c.snapshot.Clone(), c.docType, c.recordID
}
