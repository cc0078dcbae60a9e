package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

type fakeConverter struct {
	format  constants.ExportFormat
	payload any
	out     []byte
	err     error
}

func (f *fakeConverter) Export(_ context.Context, format constants.ExportFormat, payload any) ([]byte, error) {
	f.format, f.payload = format, payload
	return f.out, f.err
}

func sampleRecord() entity.Record {
	return entity.NewFlatRecord(
		entity.Field{Key: "name", Value: "Sara"},
		entity.Field{Key: "age", Value: json.Number("34")},
		entity.Field{Key: "address", Value: map[string]any{"city": "Rabat"}},
		entity.Field{Key: "spouse", Value: nil},
	)
}

const sampleReport = `{"overall_score": 87, "is_authentic": true, "confidence_level": "high", "checks": {"signature": {"passed": true, "score": 10}}}`

func TestJSON_IndentedWithNullVerification(t *testing.T) {
	svc := NewService(nil, false, nil)
	f, err := svc.Export(context.Background(), constants.ExportJSON, entity.NewFlatRecord(
		entity.Field{Key: "name", Value: "Sara"},
		entity.Field{Key: "age", Value: json.Number("34")},
	))
	require.NoError(t, err)

	want := "{\n  \"extracted_data\": {\n    \"name\": \"Sara\",\n    \"age\": 34\n  },\n  \"verification\": null\n}"
	assert.Equal(t, want, string(f.Data))
	assert.Equal(t, "ocr_data.json", f.Name)
}

func TestExport_NoSnapshot(t *testing.T) {
	_, err := NewService(nil, false, nil).Export(context.Background(), constants.ExportCSV, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoSnapshot)
	assert.Equal(t, NoDataMessage, common.UserMessage(err))
}

func TestExport_RemoteSendsPayload(t *testing.T) {
	conv := &fakeConverter{out: []byte("%PDF-1.7")}
	f, err := NewService(conv, false, nil).Export(context.Background(), constants.ExportPDF, sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, constants.ExportPDF, conv.format)
	assert.Equal(t, "ocr_data.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), f.Data)

	b, err := json.Marshal(conv.payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"extracted_data":{"name":"Sara","age":34,"address":{"city":"Rabat"},"spouse":null},"verification":null}`, string(b))
}

func TestExport_RemoteErrorPropagates(t *testing.T) {
	conv := &fakeConverter{err: &common.HTTPStatusError{StatusCode: 502}}
	_, err := NewService(conv, false, nil).Export(context.Background(), constants.ExportExcel, sampleRecord())
	require.Error(t, err)
	var statusErr *common.HTTPStatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestCSV_Rows(t *testing.T) {
	f, err := NewService(nil, true, nil).Export(context.Background(), constants.ExportCSV, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "ocr_data.csv", f.Name)

	rows, err := csv.NewReader(bytes.NewReader(f.Data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Field", "Value"},
		{"name", "Sara"},
		{"age", "34"},
		{"address", `{"city":"Rabat"}`},
		{"spouse", "null"},
	}, rows)
}

func TestCSV_VerificationSection(t *testing.T) {
	p := Payload{ExtractedData: entity.NewFlatRecord(entity.Field{Key: "name", Value: "Sara"}), Verification: json.RawMessage(sampleReport)}
	data, err := CSV(p)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Field", "Value"},
		{"name", "Sara"},
		{"Verification", "", ""},
		{"Check", "Passed/Score"},
		{"signature", "✅ / 10"},
		{"Overall Score", "87"},
		{"Authentic", "Yes"},
		{"Confidence Level", "high"},
	}, rows)
}

func TestXLSX_Sheets(t *testing.T) {
	p := Payload{ExtractedData: sampleRecord(), Verification: json.RawMessage(sampleReport)}
	data, err := XLSX(p)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("OCR Data")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Field", "Value"}, rows[0])
	assert.Equal(t, []string{"name", "Sara"}, rows[1])

	vrows, err := f.GetRows("Verification")
	require.NoError(t, err)
	assert.Equal(t, []string{"signature", "Yes", "10", "No details available"}, vrows[1])
	assert.Equal(t, "Overall Score", vrows[3][0])
}

func TestXLSX_NoVerificationSheetByDefault(t *testing.T) {
	data, err := XLSX(BuildPayload(sampleRecord()))
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"OCR Data"}, f.GetSheetList())
}

func TestPDFLines(t *testing.T) {
	p := Payload{ExtractedData: sampleRecord(), Verification: json.RawMessage(sampleReport)}
	lines := pdfLines(p)
	assert.Equal(t, "=== Extracted Data ===", lines[0])
	assert.Contains(t, lines, "name: Sara")
	assert.Contains(t, lines, `address: {"city":"Rabat"}`)
	assert.Contains(t, lines, "=== Verification ===")
	assert.Contains(t, lines, "Overall Score: 87")
	assert.Contains(t, lines, "signature: PASS / 10")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"abc"}, wrap("abc", 5))
	assert.Equal(t, []string{"abcde", "fg"}, wrap("abcdefg", 5))
}
