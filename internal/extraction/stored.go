package extraction

import (
	"encoding/json"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

type storedEnvelope struct {
	Record struct {
		ID      json.RawMessage `json:"_id"`
		DocType string          `json:"doc_type"`
		uploadEnvelope
	} `json:"record"`
}

// DecodeStoredRecord parses a GET /ocr/record/{id} body. Records stored with
// doc_type "pdf" are assembled like contract uploads; the rest use their
// extracted_data.
func DecodeStoredRecord(body []byte) (entity.UploadResult, error) {
	_, recSchema, err := compiledSchemas()
	if err != nil {
		return entity.UploadResult{}, common.WrapError(err, "record schema")
	}

	body, err = conform(recSchema, body)
	if err != nil {
		return entity.UploadResult{}, decodeError(err)
	}

	var env storedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return entity.UploadResult{}, decodeError(err)
	}
	stored := env.Record

	mode, err := constants.ModeFromDocType(stored.DocType)
	if err != nil {
		return entity.UploadResult{}, decodeError(err)
	}
	res := entity.UploadResult{
		Mode:         mode,
		Verification: DecodeVerification(stored.Verification),
		RecordID:     decodeRecordID(stored.ID),
	}

	if mode == constants.ModeContract {
		rec, err := assembleContract(stored.uploadEnvelope)
		if err != nil {
			return entity.UploadResult{}, decodeError(err)
		}
		res.Record = rec
		return res, nil
	}

	rec, err := Classify(stored.ExtractedData)
	if err != nil {
		return entity.UploadResult{}, decodeError(err)
	}
	res.Record = rec
	return res, nil
}

type historyRow struct {
	ID            json.RawMessage `json:"_id"`
	RecordID      json.RawMessage `json:"record_id"`
	DocType       string          `json:"doc_type"`
	Filename      string          `json:"filename"`
	FrontFilename string          `json:"front_filename"`
	Username      string          `json:"username"`
	Timestamp     any             `json:"timestamp"`
}

// DecodeHistory parses a GET /ocr/history body. A missing history key is an
// empty list.
func DecodeHistory(body []byte) ([]entity.HistoryEntry, error) {
	var env struct {
		History []historyRow `json:"history"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, decodeError(err)
	}

	out := make([]entity.HistoryEntry, 0, len(env.History))
	for _, row := range env.History {
		id := decodeRecordID(row.ID)
		if id == "" {
			id = decodeRecordID(row.RecordID)
		}
		name := row.Filename
		if name == "" {
			name = row.FrontFilename
		}
		out = append(out, entity.HistoryEntry{
			ID:        id,
			DocType:   row.DocType,
			Filename:  name,
			Username:  row.Username,
			Timestamp: stringify(row.Timestamp),
		})
	}
	return out, nil
}
