// Package extraction classifies backend responses into typed extraction
// records and verification results.
package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

type uploadEnvelope struct {
	Message       json.RawMessage `json:"message"`
	Text          *string         `json:"text"`
	Tables        []any           `json:"tables"`
	Images        []any           `json:"images"`
	ExtractedData json.RawMessage `json:"extracted_data"`
	ExtractedText json.RawMessage `json:"extracted_text"`
	Verification  json.RawMessage `json:"verification"`
	RecordID      json.RawMessage `json:"record_id"`
}

// decodeError marks err as a payload decoding failure.
func decodeError(err error) error {
	return common.NewAppError("DECODE_ERROR", "Server returned invalid JSON", fmt.Errorf("%w: %v", common.ErrDecode, err))
}

// DecodeUpload parses and classifies an upload response body for mode.
func DecodeUpload(mode constants.Mode, body []byte) (entity.UploadResult, error) {
	envSchema, _, err := compiledSchemas()
	if err != nil {
		return entity.UploadResult{}, common.WrapError(err, "envelope schema")
	}

	body, err = conform(envSchema, body)
	if errors.Is(err, errRootMismatch) {
		// A body that parses but is not an object carries no fields.
		body, err = []byte(`{}`), nil
	}
	if err != nil {
		return entity.UploadResult{}, decodeError(err)
	}

	var env uploadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return entity.UploadResult{}, decodeError(err)
	}

	res := entity.UploadResult{
		Mode:         mode,
		Verification: DecodeVerification(env.Verification),
		RecordID:     decodeRecordID(env.RecordID),
		Message:      rawString(env.Message),
	}

	if mode == constants.ModeContract {
		rec, err := assembleContract(env)
		if err != nil {
			return entity.UploadResult{}, decodeError(err)
		}
		res.Record = rec
		return res, nil
	}

	content := env.ExtractedData
	if !truthy(content) {
		content = env.ExtractedText
	}
	rec, err := Classify(content)
	if err != nil {
		return entity.UploadResult{}, decodeError(err)
	}
	res.Record = rec
	return res, nil
}

// assembleContract builds {text, tables, images, pages} from top-level
// fields and extracted_data.pages.
func assembleContract(env uploadEnvelope) (*entity.PaginatedRecord, error) {
	rec := &entity.PaginatedRecord{
		Tables: env.Tables,
		Images: env.Images,
	}
	if env.Text != nil {
		rec.Text = *env.Text
	}
	if rec.Tables == nil {
		rec.Tables = []any{}
	}
	if rec.Images == nil {
		rec.Images = []any{}
	}

	if isObject(env.ExtractedData) {
		var inner struct {
			Pages []entity.Page `json:"pages"`
		}
		if err := json.Unmarshal(env.ExtractedData, &inner); err != nil {
			return nil, fmt.Errorf("extracted_data.pages: %w", err)
		}
		rec.Pages = inner.Pages
	}
	if rec.Pages == nil {
		rec.Pages = []entity.Page{}
	}
	return rec, nil
}

// Classify turns an extraction object into a typed record. Objects with a
// non-empty page list or non-empty text are paginated; everything else is
// flat. Anything that is not an object yields an empty flat record.
func Classify(raw json.RawMessage) (entity.Record, error) {
	if !isObject(raw) {
		return entity.NewFlatRecord(), nil
	}

	flat := &entity.FlatRecord{}
	if err := flat.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	if !looksPaginated(flat) {
		return flat, nil
	}

	rec := &entity.PaginatedRecord{}
	if err := rec.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return rec, nil
}

func looksPaginated(flat *entity.FlatRecord) bool {
	if pages, ok := flat.Get("pages"); ok {
		if list, ok := pages.([]any); ok && len(list) > 0 {
			return true
		}
	}
	if text, ok := flat.Get("text"); ok {
		if s, ok := text.(string); ok && s != "" {
			return true
		}
	}
	return false
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// truthy mirrors a loose "is this value set" check: missing, null, false,
// zero and empty string all count as unset.
func truthy(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func decodeRecordID(raw json.RawMessage) string {
	if !truthy(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
