// Package export turns the current extraction into a downloadable file,
// either built here (JSON, and the local CSV/PDF/XLSX writers) or
// converted by the backend.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// NoDataMessage is the alert shown when there is nothing to export.
const NoDataMessage = "No data to export."

// Payload is the document every export format is built from.
type Payload struct {
	ExtractedData entity.Record `json:"extracted_data"`
	// Verification is always sent as null; the local writers accept a
	// report here but BuildPayload never fills it.
	Verification json.RawMessage `json:"verification"`
}

// BuildPayload wraps rec for export. The verification result is not
// included, matching what the backend has always received.
func BuildPayload(rec entity.Record) Payload {
	return Payload{ExtractedData: rec}
}

// File is a finished download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Converter is the backend conversion endpoint.
type Converter interface {
	Export(ctx context.Context, format constants.ExportFormat, payload any) ([]byte, error)
}

// Service produces export files.
type Service struct {
	converter Converter
	local     bool
	logger    *slog.Logger
}

// NewService builds an exporter. With local set, PDF, Excel and CSV are
// written in-process instead of being sent to the converter.
func NewService(converter Converter, local bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{converter: converter, local: local, logger: logger}
}

// Local reports whether non-JSON formats are built in-process.
func (s *Service) Local() bool { return s.local }

// Export builds the file for format from rec.
func (s *Service) Export(ctx context.Context, format constants.ExportFormat, rec entity.Record) (File, error) {
	if rec == nil {
		return File{}, common.NewAppError("NO_SNAPSHOT", NoDataMessage, common.ErrNoSnapshot)
	}
	return s.ExportPayload(ctx, format, BuildPayload(rec), s.local)
}

// ExportPayload builds the file for format from an explicit payload. local
// selects the in-process writers for PDF, Excel and CSV.
func (s *Service) ExportPayload(ctx context.Context, format constants.ExportFormat, p Payload, local bool) (File, error) {
	if p.ExtractedData == nil {
		return File{}, common.NewAppError("NO_SNAPSHOT", NoDataMessage, common.ErrNoSnapshot)
	}
	start := time.Now()

	var (
		data []byte
		err  error
	)
	switch {
	case format == constants.ExportJSON:
		data, err = JSON(p)
	case local:
		data, err = s.writeLocal(format, p)
	default:
		if s.converter == nil {
			return File{}, common.NewAppError("EXPORT_UNAVAILABLE", "no export backend configured", common.ErrInvalidInput)
		}
		data, err = s.converter.Export(ctx, format, p)
	}
	if err != nil {
		s.logger.Error("export.failed", "format", string(format), "local", local, "error", err)
		return File{}, err
	}

	s.logger.Info("export.ok",
		"format", string(format),
		"local", local || format == constants.ExportJSON,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return File{Name: format.Filename(), ContentType: format.ContentType(), Data: data}, nil
}

func (s *Service) writeLocal(format constants.ExportFormat, p Payload) ([]byte, error) {
	switch format {
	case constants.ExportCSV:
		return CSV(p)
	case constants.ExportExcel:
		return XLSX(p)
	case constants.ExportPDF:
		return PDF(p)
	}
	return nil, common.NewAppError("INVALID_FORMAT", fmt.Sprintf("unknown export format %q", format), common.ErrInvalidInput)
}

// JSON is the payload indented by two spaces.
func JSON(p Payload) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return b, nil
}
