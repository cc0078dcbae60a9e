package entity

import (
	"encoding/json"
	"fmt"
)

// PaginatedRecord is the contract/PDF extraction shape.
// Tables and Images are carried opaque; they are exported and persisted
// but never edited.
type PaginatedRecord struct {
	Text   string `json:"text"`
	Tables []any  `json:"tables"`
	Images []any  `json:"images"`
	Pages  []Page `json:"pages"`
	// Extra holds any other top-level keys the backend sent alongside.
	Extra []Field `json:"-"`
}

func (*PaginatedRecord) isRecord() {}

func (*PaginatedRecord) Kind() RecordKind { return KindPaginated }

func (r *PaginatedRecord) IsEmpty() bool {
	return r.Text == "" && len(r.Pages) == 0
}

// HasDocumentLayout reports whether the record renders as a document:
// a non-empty page list or free text.
func (r *PaginatedRecord) HasDocumentLayout() bool {
	return len(r.Pages) > 0 || r.Text != ""
}

func (r *PaginatedRecord) Fields() []Field {
	pages := make([]any, len(r.Pages))
	for i, p := range r.Pages {
		pages[i] = p
	}
	fields := []Field{
		{Key: "text", Value: r.Text},
		{Key: "tables", Value: nonNil(r.Tables)},
		{Key: "images", Value: nonNil(r.Images)},
		{Key: "pages", Value: pages},
	}
	for _, f := range r.Extra {
		switch f.Key {
		case "text", "tables", "images", "pages":
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func (r *PaginatedRecord) Clone() Record {
	out := &PaginatedRecord{
		Text:   r.Text,
		Tables: cloneSlice(r.Tables),
		Images: cloneSlice(r.Images),
	}
	if r.Extra != nil {
		out.Extra = make([]Field, len(r.Extra))
		for i, f := range r.Extra {
			out.Extra[i] = Field{Key: f.Key, Value: cloneValue(f.Value)}
		}
	}
	if r.Pages != nil {
		out.Pages = make([]Page, len(r.Pages))
		for i, p := range r.Pages {
			out.Pages[i] = p.clone()
		}
	}
	return out
}

func (r *PaginatedRecord) MarshalJSON() ([]byte, error) {
	return NewFlatRecord(r.Fields()...).MarshalJSON()
}

func nonNil(in []any) []any {
	if in == nil {
		return []any{}
	}
	return in
}

// UnmarshalJSON splits a JSON object into the typed document keys and Extra.
func (r *PaginatedRecord) UnmarshalJSON(data []byte) error {
	var flat FlatRecord
	if err := flat.UnmarshalJSON(data); err != nil {
		return err
	}

	*r = PaginatedRecord{}
	for _, f := range flat.fields {
		switch f.Key {
		case "text":
			if s, ok := f.Value.(string); ok {
				r.Text = s
			}
		case "tables":
			if a, ok := f.Value.([]any); ok {
				r.Tables = a
			}
		case "images":
			if a, ok := f.Value.([]any); ok {
				r.Images = a
			}
		case "pages":
			if f.Value == nil {
				continue
			}
			b, err := json.Marshal(f.Value)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(b, &r.Pages); err != nil {
				return fmt.Errorf("pages: %w", err)
			}
		default:
			r.Extra = append(r.Extra, f)
		}
	}
	return nil
}
