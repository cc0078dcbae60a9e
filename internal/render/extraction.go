// Package render builds view models for extraction and verification results
// and renders them to HTML fragments. Every function here is pure.
package render

import (
	"strconv"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// ExtractionView is what the extraction panel shows. Exactly one of Empty,
// Document or Rows is set.
type ExtractionView struct {
	Mode     constants.Mode
	Empty    bool
	Document *DocumentView
	Rows     []FieldRow
}

// DocumentView is the document layout: free text, then pages.
type DocumentView struct {
	Text  string
	Pages []PageView
}

// PageView is one titled page block with its text items in order.
type PageView struct {
	Title string
	Texts []string
}

// FieldRow is one row of the flat layout. Pre rows are free text blocks.
type FieldRow struct {
	Key    string
	Label  string
	Value  string
	RTL    bool
	Nested bool
	Pre    bool
}

// Dir is the row's text direction attribute.
func (r FieldRow) Dir() string {
	if r.RTL {
		return "rtl"
	}
	return "ltr"
}

// BuildExtractionView maps a record to its display. A nil record shows as
// empty.
func BuildExtractionView(rec entity.Record, mode constants.Mode) ExtractionView {
	view := ExtractionView{Mode: mode}
	if rec == nil || rec.IsEmpty() {
		view.Empty = true
		return view
	}

	if p, ok := rec.(*entity.PaginatedRecord); ok && p.HasDocumentLayout() {
		view.Document = buildDocument(p)
		return view
	}

	for _, f := range rec.Fields() {
		if skipDisplayField(f.Key, f.Value) {
			continue
		}
		text, nested := FormatValue(f.Value)
		_, isString := f.Value.(string)
		row := FieldRow{
			Key:    f.Key,
			Label:  FormatKey(f.Key),
			Value:  text,
			RTL:    isString && IsRTL(text),
			Nested: nested,
			Pre:    f.Key == "text",
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// skipDisplayField hides null values and metadata keys. Nested values stay
// visible and are shown indented.
func skipDisplayField(key string, value any) bool {
	return value == nil || constants.IsNonEditableField(key)
}

func buildDocument(rec *entity.PaginatedRecord) *DocumentView {
	doc := &DocumentView{Text: rec.Text}
	for _, page := range rec.Pages {
		if !page.HasContent() {
			continue
		}
		pv := PageView{Title: pageTitle(page.PageNumber)}
		for _, item := range page.Content {
			// table and image items are recognized but not drawn yet
			if item.IsText() {
				pv.Texts = append(pv.Texts, item.Value)
			}
		}
		doc.Pages = append(doc.Pages, pv)
	}
	return doc
}

func pageTitle(n int) string {
	if n == 0 {
		return "Page ?:"
	}
	return "Page " + strconv.Itoa(n) + ":"
}
