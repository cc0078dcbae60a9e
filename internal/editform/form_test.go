package editform

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/extraction"
)

func paths(f Form) []string {
	var out []string
	for _, c := range f.Controls() {
		out = append(out, c.Path)
	}
	return out
}

func TestShouldSkipEditField(t *testing.T) {
	tests := []struct {
		key   string
		value any
		skip  bool
	}{
		{"name", "Sara", false},
		{"age", json.Number("3"), false},
		{"valid", true, false},
		{"name", nil, true},
		{"address", map[string]any{"city": "Rabat"}, true},
		{"quality", []any{"blur"}, true},
		{"_id", "abc", true},
		{"user_id", "u1", true},
		{"filename", "x.png", true},
		{"doc_type", "cin", true},
		{"success", true, true},
		{"message", "ok", true},
		{"timestamp", "2024", true},
		{"verification", "x", true},
		{"tables", "x", true},
		{"images", "x", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.skip, ShouldSkipEditField(tt.key, tt.value), tt.key)
	}
}

func TestBuild_Flat(t *testing.T) {
	long := strings.Repeat("a", 81)
	rec := entity.NewFlatRecord(
		entity.Field{Key: "_id", Value: "abc"},
		entity.Field{Key: "first_name", Value: "Sara"},
		entity.Field{Key: "address", Value: long},
		entity.Field{Key: "age", Value: json.Number("34")},
		entity.Field{Key: "mrz", Value: map[string]any{"line1": "P<MAR"}},
		entity.Field{Key: "exact", Value: strings.Repeat("b", 80)},
	)
	form := Build(rec, constants.ModePassport)
	controls := form.Controls()
	require.Len(t, controls, 4)

	assert.Equal(t, []string{"first_name", "address", "age", "exact"}, paths(form))
	assert.Equal(t, "First Name", controls[0].Label)
	assert.False(t, controls[0].Multiline)
	assert.True(t, controls[1].Multiline)
	assert.Equal(t, "34", controls[2].Value)
	assert.False(t, controls[3].Multiline)
}

func TestBuild_ContractText(t *testing.T) {
	rec := &entity.PaginatedRecord{Text: "body", Pages: []entity.Page{{PageNumber: 1, Content: []entity.ContentItem{{Type: entity.ContentText, Value: "p1"}}}}}
	form := Build(rec, constants.ModeContract)
	controls := form.Controls()
	require.Len(t, controls, 1)
	assert.Equal(t, "text", controls[0].Path)
	assert.Equal(t, "Extracted Text", controls[0].Label)
	assert.Equal(t, 15, controls[0].Rows)
}

func TestBuild_Pages(t *testing.T) {
	rec := &entity.PaginatedRecord{Pages: []entity.Page{
		{PageNumber: 3, Content: []entity.ContentItem{
			{Type: entity.ContentText, Value: "a"},
			{Type: entity.ContentTable},
			{Type: entity.ContentText, Value: "c"},
		}},
		{},
	}}
	form := Build(rec, constants.ModeContract)
	require.Len(t, form.Sections, 2)
	assert.Equal(t, "Page 3", form.Sections[0].Heading)
	assert.Equal(t, "Page 2", form.Sections[1].Heading)
	assert.Empty(t, form.Sections[1].Controls)
	assert.Equal(t, []string{"pages.0.content.0.value", "pages.0.content.2.value"}, paths(form))
	assert.Equal(t, "Text block 3", form.Sections[0].Controls[1].Label)
}

func TestApply_IsolatesLeaf(t *testing.T) {
	res, err := extraction.DecodeUpload(constants.ModeContract, []byte(`{"extracted_data":{"pages":[
		{"page_number":1,"content":[
			{"type":"text","value":"zero"},
			{"type":"text","value":"one"},
			{"type":"text","value":"two","bbox":[1,2,3,4]}
		]}
	]}}`))
	require.NoError(t, err)
	rec := res.Record.(*entity.PaginatedRecord)

	require.NoError(t, Apply(rec, constants.ModeContract, map[string]string{"pages.0.content.2.value": "TWO"}))

	content := rec.Pages[0].Content
	assert.Equal(t, "zero", content[0].Value)
	assert.Equal(t, "one", content[1].Value)
	assert.Equal(t, "TWO", content[2].Value)
	assert.Contains(t, content[2].Extra, "bbox")
}

func TestApply_UnknownPathChangesNothing(t *testing.T) {
	rec := entity.NewFlatRecord(
		entity.Field{Key: "name", Value: "Sara"},
		entity.Field{Key: "_id", Value: "abc"},
	)
	err := Apply(rec, constants.ModePassport, map[string]string{
		"name":    "Changed",
		"missing": "x",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPathNotFound))

	v, _ := rec.Get("name")
	assert.Equal(t, "Sara", v)

	err = Apply(rec, constants.ModePassport, map[string]string{"_id": "forged"})
	assert.ErrorIs(t, err, common.ErrPathNotFound)
	v, _ = rec.Get("_id")
	assert.Equal(t, "abc", v)
}

func TestApply_StoresStringsAndKeepsKeys(t *testing.T) {
	rec := entity.NewFlatRecord(
		entity.Field{Key: "_id", Value: "abc"},
		entity.Field{Key: "age", Value: json.Number("34")},
		entity.Field{Key: "doc_type", Value: "cin"},
	)
	require.NoError(t, Apply(rec, constants.ModeCIN, map[string]string{"age": "35"}))

	v, _ := rec.Get("age")
	assert.Equal(t, "35", v)

	var keys []string
	for _, f := range rec.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"_id", "age", "doc_type"}, keys)
}

func TestApply_PaginatedOutOfRange(t *testing.T) {
	rec := &entity.PaginatedRecord{Pages: []entity.Page{{Content: []entity.ContentItem{{Type: entity.ContentText, Value: "a"}}}}}
	err := Apply(rec, constants.ModeContract, map[string]string{"pages.4.content.0.value": "x"})
	assert.ErrorIs(t, err, common.ErrPathNotFound)
	assert.Equal(t, "a", rec.Pages[0].Content[0].Value)
}
