package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/extraction"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "missing")
			assert.ErrorIs(t, err, common.ErrNotFound)

			flat := entity.NewFlatRecord(
				entity.Field{Key: "last_name", Value: "Benali"},
				entity.Field{Key: "first_name", Value: "Sara"},
			)
			snap := Snapshot{
				Mode:         constants.ModePassport,
				DocType:      constants.ModeCIN,
				RecordID:     "r1",
				Record:       flat,
				Verification: extraction.DecodeVerification(json.RawMessage(`["expired"]`)),
			}
			require.NoError(t, store.Save(ctx, "s1", snap))

			// later edits to the caller's record must not reach the store
			flat.Set("first_name", "Changed")

			got, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, constants.ModePassport, got.Mode)
			assert.Equal(t, constants.ModeCIN, got.DocType)
			assert.Equal(t, "r1", got.RecordID)
			require.Equal(t, entity.KindFlat, got.Record.Kind())
			b, err := got.Record.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, `{"last_name":"Benali","first_name":"Sara"}`, string(b))
			assert.Equal(t, []string{"expired"}, got.Verification.Errors)
			assert.False(t, got.UpdatedAt.IsZero())

			page := &entity.PaginatedRecord{
				Text:   "contract",
				Tables: []any{},
				Images: []any{},
				Pages:  []entity.Page{{PageNumber: 1, Content: []entity.ContentItem{{Type: entity.ContentText, Value: "p1"}}}},
			}
			require.NoError(t, store.Save(ctx, "s1", Snapshot{Mode: constants.ModeContract, DocType: constants.ModeContract, Record: page}))
			got, err = store.Load(ctx, "s1")
			require.NoError(t, err)
			rec, ok := got.Record.(*entity.PaginatedRecord)
			require.True(t, ok)
			assert.Equal(t, "contract", rec.Text)
			assert.Equal(t, "p1", rec.Pages[0].Content[0].Value)
			assert.Empty(t, got.RecordID)
			assert.Equal(t, entity.VerificationAbsent, got.Verification.Kind)

			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Load(ctx, "s1")
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestOpen_UnknownDSN(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost")
	assert.Error(t, err)
}
