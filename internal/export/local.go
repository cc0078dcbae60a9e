package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/extraction"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
)

// cellValue renders a top-level value for a Field,Value row. Objects,
// arrays and null are JSON-encoded.
func cellValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return render.FormatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func dataRows(p Payload) [][]string {
	var rows [][]string
	for _, f := range p.ExtractedData.Fields() {
		rows = append(rows, []string{f.Key, cellValue(f.Value)})
	}
	return rows
}

// report returns the payload's verification report, if it carries one.
func report(p Payload) *entity.VerificationReport {
	v := extraction.DecodeVerification(p.Verification)
	if v.Kind != entity.VerificationScored {
		return nil
	}
	return v.Report
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func checkMark(passed bool, score float64, pass, fail string) string {
	mark := fail
	if passed {
		mark = pass
	}
	return mark + " / " + render.FormatNumber(score)
}

// CSV writes Field,Value rows followed by a verification section when the
// payload has a report.
func CSV(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{{"Field", "Value"}}
	records = append(records, dataRows(p)...)
	if r := report(p); r != nil {
		records = append(records,
			[]string{""},
			[]string{"Verification", "", ""},
			[]string{"Check", "Passed/Score"},
		)
		for _, c := range r.Checks {
			records = append(records, []string{c.Name, checkMark(c.Passed, c.Score, "✅", "❌")})
		}
		records = append(records,
			[]string{"Overall Score", render.FormatNumber(r.OverallScore)},
			[]string{"Authentic", yesNo(r.IsAuthentic)},
			[]string{"Confidence Level", r.ConfidenceLevel},
		)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX writes the same rows as CSV, with the verification report on its own
// sheet.
func XLSX(p Payload) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "OCR Data"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	write := func(sheet string, row int, values ...string) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	write(sheet, 1, "Field", "Value")
	for i, r := range dataRows(p) {
		write(sheet, i+2, r...)
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 80)

	if r := report(p); r != nil {
		const vsheet = "Verification"
		if _, err := f.NewSheet(vsheet); err != nil {
			return nil, err
		}
		write(vsheet, 1, "Check", "Passed", "Score", "Details")
		row := 2
		for _, c := range r.Checks {
			write(vsheet, row, c.Name, yesNo(c.Passed), render.FormatNumber(c.Score), c.Details)
			row++
		}
		row++
		write(vsheet, row, "Overall Score", render.FormatNumber(r.OverallScore))
		write(vsheet, row+1, "Authentic", yesNo(r.IsAuthentic))
		write(vsheet, row+2, "Confidence Level", r.ConfidenceLevel)
		_ = f.SetColWidth(vsheet, "A", "A", 28)
		_ = f.SetColWidth(vsheet, "D", "D", 60)
	}

	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF layout, in points on an A4 portrait page with the origin top left.
const (
	pdfMarginX    = 40
	pdfMarginTop  = 40
	pdfLineHeight = 16
	pdfLinesPage  = 45
	pdfMaxChars   = 95
)

// pdfLines renders the payload as "key: value" lines plus the verification
// summary.
func pdfLines(p Payload) []string {
	lines := []string{"=== Extracted Data ===", ""}
	for _, r := range dataRows(p) {
		lines = append(lines, wrap(r[0]+": "+r[1], pdfMaxChars)...)
	}
	if r := report(p); r != nil {
		lines = append(lines, "", "=== Verification ===",
			"Overall Score: "+render.FormatNumber(r.OverallScore),
			"Authentic: "+yesNo(r.IsAuthentic),
			"Confidence: "+r.ConfidenceLevel,
		)
		for _, c := range r.Checks {
			lines = append(lines, c.Name+": "+checkMark(c.Passed, c.Score, "PASS", "FAIL"))
		}
	}
	return lines
}

func wrap(s string, width int) []string {
	runes := []rune(s)
	if len(runes) <= width {
		return []string{s}
	}
	var out []string
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	return append(out, string(runes))
}

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type pdfText struct {
	Value string   `json:"value"`
	Pos   [2]int   `json:"pos"`
	Font  *pdfFont `json:"font"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfDescription struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

// PDF draws the payload lines with pdfcpu's JSON page description.
func PDF(p Payload) ([]byte, error) {
	lines := pdfLines(p)
	desc := pdfDescription{Paper: "A4P", Origin: "UpperLeft", Pages: map[string]pdfPage{}}
	font := &pdfFont{Name: "Helvetica", Size: 11}

	for i := 0; i < len(lines); i += pdfLinesPage {
		end := min(i+pdfLinesPage, len(lines))
		var page pdfPage
		for j, line := range lines[i:end] {
			if line == "" {
				continue
			}
			page.Content.Text = append(page.Content.Text, pdfText{
				Value: line,
				Pos:   [2]int{pdfMarginX, pdfMarginTop + j*pdfLineHeight},
				Font:  font,
			})
		}
		desc.Pages[strconv.Itoa(i/pdfLinesPage+1)] = page
	}

	js, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("pdf description: %w", err)
	}
	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(js), &out, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("pdf create: %w", err)
	}
	return out.Bytes(), nil
}
