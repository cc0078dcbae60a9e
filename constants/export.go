package constants

import (
	"fmt"
	"strings"
)

// ExportFormat is one of the download formats offered by the dashboard.
type ExportFormat string

const (
	ExportJSON  ExportFormat = "json"
	ExportPDF   ExportFormat = "pdf"
	ExportExcel ExportFormat = "excel"
	ExportCSV   ExportFormat = "csv"
)

// AllExportFormats in button order.
var AllExportFormats = []ExportFormat{ExportPDF, ExportExcel, ExportCSV, ExportJSON}

func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case ExportJSON, ExportPDF, ExportExcel, ExportCSV:
		return f, nil
	case "xlsx":
		return ExportExcel, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Filename is the fixed download name for the format.
func (f ExportFormat) Filename() string {
	switch f {
	case ExportPDF:
		return "ocr_data.pdf"
	case ExportExcel:
		return "ocr_data.xlsx"
	case ExportCSV:
		return "ocr_data.csv"
	}
	return "ocr_data.json"
}

// ContentType of the downloaded file.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportPDF:
		return "application/pdf"
	case ExportExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// BackendPath is the conversion endpoint; JSON is built locally and has none.
func (f ExportFormat) BackendPath() string {
	switch f {
	case ExportPDF, ExportExcel, ExportCSV:
		return "/ocr/export/" + string(f)
	}
	return ""
}
