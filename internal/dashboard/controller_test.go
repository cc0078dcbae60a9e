package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/backend"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/export"
	"github.com/joseph-ayodele/ocr-dashboard/internal/preview"
	"github.com/joseph-ayodele/ocr-dashboard/internal/session"
)

// fakeBackend answers from canned bodies. If gate is set, Upload blocks
// until it is closed.
type fakeBackend struct {
	uploadBody []byte
	uploadErr  error
	updateErr  error
	recordBody []byte
	gate       chan struct{}
	started    chan struct{}

	uploads atomic.Int32
	updates atomic.Int32
	lastID  string
}

func (f *fakeBackend) Upload(ctx context.Context, _ constants.Mode, _ []entity.File) ([]byte, error) {
	f.uploads.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.uploadBody, f.uploadErr
}

func (f *fakeBackend) UpdateRecord(_ context.Context, id string, _ entity.Record, _ constants.Mode) ([]byte, error) {
	f.updates.Add(1)
	f.lastID = id
	return []byte(`{"success":true}`), f.updateErr
}

func (f *fakeBackend) History(context.Context) ([]byte, error) {
	return []byte(`{"history":[{"doc_type":"passport","filename":"p.jpg","timestamp":"2024-01-01"}]}`), nil
}

func (f *fakeBackend) GetRecord(_ context.Context, id string) ([]byte, error) {
	return f.recordBody, nil
}

type fakePreviewer struct{}

func (fakePreviewer) Build(_ context.Context, mode constants.Mode, files map[string]entity.File) preview.Preview {
	p := preview.Preview{Mode: mode}
	for slot, f := range files {
		p.Images = append(p.Images, preview.Image{Slot: slot, Name: f.Name})
	}
	return p
}

func passportFile() entity.File {
	return entity.File{Name: "p.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}
}

func newController(b Backend) *Controller {
	return New("s1", Deps{
		Backend:   b,
		Previewer: fakePreviewer{},
		Exporter:  export.NewService(nil, true, nil),
	})
}

func TestSubmit_MissingFilesSendsNothing(t *testing.T) {
	fb := &fakeBackend{}
	c := newController(fb)

	tests := []struct {
		mode constants.Mode
		msg  string
	}{
		{constants.ModeCIN, "Please select both front and back images for CIN"},
		{constants.ModePassport, "Please select an image file for Passport"},
		{constants.ModeContract, "Please select a PDF file for Contract"},
	}
	for _, tt := range tests {
		require.NoError(t, c.SelectMode(context.Background(), string(tt.mode)))
		_, err := c.Submit(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Equal(t, tt.msg, common.UserMessage(err))
	}

	// only one of the two ID card images
	require.NoError(t, c.SelectMode(context.Background(), "cin"))
	require.NoError(t, c.SelectFile(constants.SlotFront, passportFile()))
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Equal(t, int32(0), fb.uploads.Load())
	assert.False(t, c.View().Busy)
}

func TestSubmit_HTTP500ClearsBusyAndReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newController(backend.NewClient(srv.URL))
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, common.UserMessage(err), "500")
	assert.Equal(t, "Upload failed: HTTP 500: Internal Server Error", common.UserMessage(err))

	var statusErr *common.HTTPStatusError
	assert.True(t, errors.As(err, &statusErr))

	v := c.View()
	assert.False(t, v.Busy)
	require.NotNil(t, v.Verification)
	assert.Contains(t, v.Verification.Banner, "500")
	assert.False(t, v.HasSnapshot)
}

func TestSubmit_InvalidJSON(t *testing.T) {
	fb := &fakeBackend{uploadBody: []byte("<html>")}
	c := newController(fb)
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDecode)
	assert.Equal(t, "Upload failed: Server returned invalid JSON", common.UserMessage(err))
	assert.False(t, c.View().Busy)
}

func TestSubmit_SuccessBuildsPanels(t *testing.T) {
	fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"passport_no":"X1","date_of_birth":"1990-01-01"},"verification":{"overall_score":90,"is_authentic":true},"record_id":"r9"}`)}
	c := newController(fb)
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r9", res.RecordID)

	v := c.View()
	assert.True(t, v.HasSnapshot)
	assert.Equal(t, "r9", v.RecordID)
	require.NotNil(t, v.Extraction)
	require.Len(t, v.Extraction.Rows, 2)
	assert.Equal(t, "Date Of Birth", v.Extraction.Rows[1].Label)
	require.NotNil(t, v.Verification)
	assert.Equal(t, "90%", v.Verification.Card.Score)

	// the controller keeps its own copy of the record
	rec := res.Record.(*entity.FlatRecord)
	rec.Set("passport_no", "tampered")
	snap, _, _ := c.Snapshot()
	got, _ := snap.(*entity.FlatRecord).Get("passport_no")
	assert.Equal(t, "X1", got)
}

func TestSubmit_BusyWhileInFlight(t *testing.T) {
	fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{}}`), gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newController(fb)
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-fb.started
	assert.True(t, c.View().Busy)

	close(fb.gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not return")
	}
	assert.False(t, c.View().Busy)
}

func TestSubmit_ModeSwitchDiscardsLateResponse(t *testing.T) {
	fb := &fakeBackend{
		uploadBody: []byte(`{"extracted_data":{"name":"late"}}`),
		gate:       make(chan struct{}),
		started:    make(chan struct{}, 1),
	}
	c := newController(fb)
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-fb.started
	require.NoError(t, c.SelectMode(context.Background(), "contract"))
	close(fb.gate)

	err := <-done
	assert.ErrorIs(t, err, common.ErrSuperseded)

	v := c.View()
	assert.Equal(t, constants.ModeContract, v.Mode)
	assert.Nil(t, v.Extraction)
	assert.Nil(t, v.Verification)
	assert.False(t, v.HasSnapshot)
	assert.False(t, v.Busy)
}

func TestSelectMode_Clears(t *testing.T) {
	fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara"},"verification":["bad"]}`)}
	c := newController(fb)
	ctx := context.Background()

	for _, m := range constants.AllModes {
		require.NoError(t, c.SelectMode(ctx, "passport"))
		require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
		c.Preview(ctx)
		_, err := c.Submit(ctx)
		require.NoError(t, err)

		v := c.View()
		require.NotNil(t, v.Preview)
		require.NotNil(t, v.Extraction)
		require.NotNil(t, v.Verification)

		require.NoError(t, c.SelectMode(ctx, string(m)))
		v = c.View()
		assert.Equal(t, m, v.Mode)
		assert.Empty(t, v.Pending, m)
		assert.Nil(t, v.Preview, m)
		assert.Nil(t, v.Extraction, m)
		assert.Nil(t, v.Verification, m)

		// selecting it again changes nothing further
		require.NoError(t, c.SelectMode(ctx, string(m)))
		assert.Equal(t, v, c.View())
	}

	assert.Error(t, c.SelectMode(ctx, "invoice"))
}

func TestSelectFile_RejectsForeignSlot(t *testing.T) {
	c := newController(&fakeBackend{})
	require.NoError(t, c.SelectMode(context.Background(), "passport"))
	assert.ErrorIs(t, c.SelectFile(constants.SlotFront, passportFile()), common.ErrValidation)
}

func TestSaveEdits(t *testing.T) {
	ctx := context.Background()

	t.Run("no snapshot", func(t *testing.T) {
		c := newController(&fakeBackend{})
		_, err := c.SaveEdits(ctx, map[string]string{"name": "x"})
		assert.ErrorIs(t, err, common.ErrNoSnapshot)
		assert.Equal(t, NoEditMessage, common.UserMessage(err))
		_, err = c.EditForm()
		assert.ErrorIs(t, err, common.ErrNoSnapshot)
	})

	t.Run("persists with record id", func(t *testing.T) {
		fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara","age":30},"record_id":"r1"}`)}
		c := newController(fb)
		require.NoError(t, c.SelectMode(ctx, "passport"))
		require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
		_, err := c.Submit(ctx)
		require.NoError(t, err)

		form, err := c.EditForm()
		require.NoError(t, err)
		require.Len(t, form.Controls(), 2)

		res, err := c.SaveEdits(ctx, map[string]string{"name": "Salma"})
		require.NoError(t, err)
		assert.True(t, res.Persisted)
		assert.Equal(t, []Notice{{Level: "success", Text: SavedMessage}}, res.Notices)
		assert.Equal(t, "r1", fb.lastID)
		assert.Equal(t, "Salma", c.View().Extraction.Rows[0].Value)
	})

	t.Run("backend failure keeps local edit", func(t *testing.T) {
		fb := &fakeBackend{
			uploadBody: []byte(`{"extracted_data":{"name":"Sara"},"record_id":"r1"}`),
			updateErr:  &common.HTTPStatusError{StatusCode: 503},
		}
		c := newController(fb)
		require.NoError(t, c.SelectMode(ctx, "passport"))
		require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
		_, err := c.Submit(ctx)
		require.NoError(t, err)

		res, err := c.SaveEdits(ctx, map[string]string{"name": "Salma"})
		require.NoError(t, err)
		assert.False(t, res.Persisted)
		assert.ErrorIs(t, res.PersistErr, common.ErrPersistence)
		require.Len(t, res.Notices, 2)
		assert.Equal(t, "Failed to save to backend: HTTP 503: Service Unavailable", res.Notices[1].Text)

		snap, _, _ := c.Snapshot()
		v, _ := snap.(*entity.FlatRecord).Get("name")
		assert.Equal(t, "Salma", v)
	})

	t.Run("no record id stays local", func(t *testing.T) {
		fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara"}}`)}
		c := newController(fb)
		require.NoError(t, c.SelectMode(ctx, "passport"))
		require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
		_, err := c.Submit(ctx)
		require.NoError(t, err)

		res, err := c.SaveEdits(ctx, map[string]string{"name": "Salma"})
		require.NoError(t, err)
		assert.False(t, res.Persisted)
		assert.Nil(t, res.PersistErr)
		assert.Equal(t, int32(0), fb.updates.Load())
	})

	t.Run("unknown path", func(t *testing.T) {
		fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara"},"record_id":"r1"}`)}
		c := newController(fb)
		require.NoError(t, c.SelectMode(ctx, "passport"))
		require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
		_, err := c.Submit(ctx)
		require.NoError(t, err)

		_, err = c.SaveEdits(ctx, map[string]string{"nope": "x"})
		assert.ErrorIs(t, err, common.ErrPathNotFound)
		assert.Equal(t, int32(0), fb.updates.Load())
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara"}}`)})

	_, err := c.Export(ctx, constants.ExportJSON)
	assert.ErrorIs(t, err, common.ErrNoSnapshot)
	assert.Equal(t, "No data to export.", common.UserMessage(err))

	require.NoError(t, c.SelectMode(ctx, "passport"))
	require.NoError(t, c.SelectFile(constants.SlotFile, passportFile()))
	_, err = c.Submit(ctx)
	require.NoError(t, err)

	f, err := c.Export(ctx, constants.ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "ocr_data.json", f.Name)
	assert.JSONEq(t, `{"extracted_data":{"name":"Sara"},"verification":null}`, string(f.Data))
}

func TestLoadRecord_PDFBecomesContract(t *testing.T) {
	fb := &fakeBackend{recordBody: []byte(`{"success":true,"record":{"_id":"abc","doc_type":"pdf","text":"Stored contract","tables":[],"images":[],"verification":null}}`)}
	c := newController(fb)

	res, err := c.LoadRecord(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, constants.ModeContract, res.Mode)
	assert.Equal(t, entity.KindPaginated, res.Record.Kind())

	v := c.View()
	assert.Equal(t, constants.ModeContract, v.Mode)
	assert.Equal(t, "abc", v.RecordID)
	require.NotNil(t, v.Extraction.Document)
	assert.Equal(t, "Stored contract", v.Extraction.Document.Text)

	form, err := c.EditForm()
	require.NoError(t, err)
	assert.Equal(t, "Extracted Text", form.Controls()[0].Label)
}

func TestHistory(t *testing.T) {
	c := newController(&fakeBackend{})
	entries, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p.jpg", c.View().History[0].Filename)
}

func TestRestore_FromStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"name":"Sara"},"record_id":"r1"}`)}

	first := New("s1", Deps{Backend: fb, Store: store})
	require.NoError(t, first.SelectMode(ctx, "passport"))
	require.NoError(t, first.SelectFile(constants.SlotFile, passportFile()))
	_, err := first.Submit(ctx)
	require.NoError(t, err)

	second := New("s1", Deps{Backend: fb, Store: store})
	require.NoError(t, second.Restore(ctx))
	v := second.View()
	assert.Equal(t, constants.ModePassport, v.Mode)
	assert.True(t, v.HasSnapshot)
	assert.Equal(t, "r1", v.RecordID)

	assert.ErrorIs(t, New("other", Deps{Backend: fb, Store: store}).Restore(ctx), common.ErrNotFound)
}

func TestRestore_KeepsSelectedModeApartFromDocType(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	fb := &fakeBackend{uploadBody: []byte(`{"extracted_data":{"passport_no":"X1"},"record_id":"r2"}`)}

	first := New("s1", Deps{Backend: fb, Store: store})
	require.NoError(t, first.SelectMode(ctx, "passport"))
	require.NoError(t, first.SelectFile(constants.SlotFile, passportFile()))
	_, err := first.Submit(ctx)
	require.NoError(t, err)
	require.NoError(t, first.SelectMode(ctx, "contract"))

	snap, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, constants.ModeContract, snap.Mode)
	assert.Equal(t, constants.ModePassport, snap.DocType)

	second := New("s1", Deps{Backend: fb, Store: store})
	require.NoError(t, second.Restore(ctx))
	v := second.View()
	assert.Equal(t, constants.ModeContract, v.Mode)
	assert.True(t, v.HasSnapshot)
	assert.Nil(t, v.Extraction)

	_, docType, id := second.Snapshot()
	assert.Equal(t, constants.ModePassport, docType)
	assert.Equal(t, "r2", id)

	form, err := second.EditForm()
	require.NoError(t, err)
	assert.Equal(t, constants.ModePassport, form.Mode)
}
