// Package editform builds edit controls for an extraction record and
// writes submitted values back through validated dotted paths.
package editform

import (
	"strconv"
	"unicode/utf8"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
)

const (
	contractTextRows = 15
	textareaRows     = 4
)

// Control is one input of the edit form, addressed by Path.
type Control struct {
	Path      string
	Label     string
	Value     string
	Multiline bool
	Rows      int
}

// Section groups controls under an optional heading (one per page).
type Section struct {
	Heading  string
	Controls []Control
}

// Form is the full edit form for a record.
type Form struct {
	Mode     constants.Mode
	Sections []Section
}

// Controls flattens the form in display order.
func (f Form) Controls() []Control {
	var out []Control
	for _, s := range f.Sections {
		out = append(out, s.Controls...)
	}
	return out
}

// Paths returns the set of addressable paths.
func (f Form) Paths() map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range f.Controls() {
		out[c.Path] = struct{}{}
	}
	return out
}

// ShouldSkipEditField reports whether a top-level field gets no control:
// nulls, objects, arrays and denylisted metadata keys.
func ShouldSkipEditField(key string, value any) bool {
	if value == nil || constants.IsNonEditableField(key) {
		return true
	}
	switch value.(type) {
	case map[string]any, []any, []entity.Page, []entity.ContentItem:
		return true
	}
	return false
}

// Build returns the edit form for rec in mode.
func Build(rec entity.Record, mode constants.Mode) Form {
	form := Form{Mode: mode}
	if rec == nil {
		return form
	}

	if p, ok := rec.(*entity.PaginatedRecord); ok {
		if mode == constants.ModeContract && p.Text != "" {
			form.Sections = []Section{{Controls: []Control{{
				Path:      "text",
				Label:     "Extracted Text",
				Value:     p.Text,
				Multiline: true,
				Rows:      contractTextRows,
			}}}}
			return form
		}
		if p.Pages != nil {
			form.Sections = pageSections(p.Pages)
			return form
		}
	}

	var controls []Control
	for _, f := range rec.Fields() {
		if ShouldSkipEditField(f.Key, f.Value) {
			continue
		}
		value, _ := render.FormatValue(f.Value)
		c := Control{Path: f.Key, Label: render.FormatKey(f.Key), Value: value}
		if s, ok := f.Value.(string); ok && utf8.RuneCountInString(s) > constants.LongTextThreshold {
			c.Multiline = true
			c.Rows = textareaRows
		}
		controls = append(controls, c)
	}
	if len(controls) > 0 {
		form.Sections = []Section{{Controls: controls}}
	}
	return form
}

func pageSections(pages []entity.Page) []Section {
	sections := make([]Section, 0, len(pages))
	for pi, page := range pages {
		n := page.PageNumber
		if n == 0 {
			n = pi + 1
		}
		s := Section{Heading: "Page " + strconv.Itoa(n)}
		for ii, item := range page.Content {
			if !item.IsText() {
				continue
			}
			s.Controls = append(s.Controls, Control{
				Path:      pagePath(pi, ii),
				Label:     "Text block " + strconv.Itoa(ii+1),
				Value:     item.Value,
				Multiline: true,
				Rows:      textareaRows,
			})
		}
		sections = append(sections, s)
	}
	return sections
}

func pagePath(page, item int) string {
	return "pages." + strconv.Itoa(page) + ".content." + strconv.Itoa(item) + ".value"
}
