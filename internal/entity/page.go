package entity

import (
	"encoding/json"
	"fmt"
)

// Page is one page of a paginated record. A nil Content means the backend
// sent no content field, which is different from an empty list.
type Page struct {
	PageNumber int           `json:"page_number,omitempty"`
	Content    []ContentItem `json:"content"`
}

// HasContent reports whether the page carried a content field.
func (p Page) HasContent() bool { return p.Content != nil }

func (p Page) clone() Page {
	out := Page{PageNumber: p.PageNumber}
	if p.Content != nil {
		out.Content = make([]ContentItem, len(p.Content))
		for i, c := range p.Content {
			out.Content[i] = c.clone()
		}
	}
	return out
}

// ContentType tags a content item.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentTable ContentType = "table"
	ContentImage ContentType = "image"
)

// ContentItem is a tagged union over text, table and image items.
// Attributes without a typed field (table rows, bounding boxes...) are kept
// in Extra so they survive a save round-trip.
type ContentItem struct {
	Type        ContentType
	Value       string
	Base64      string
	Format      string
	ImageNumber int
	Extra       map[string]json.RawMessage
}

// IsText reports whether the item is a non-empty text block.
func (c ContentItem) IsText() bool {
	return c.Type == ContentText && c.Value != ""
}

func (c ContentItem) clone() ContentItem {
	out := c
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("content item: %w", err)
	}
	*c = ContentItem{}

	take := func(key string, dst any) {
		v, ok := raw[key]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, dst); err == nil {
			delete(raw, key)
		}
	}
	var typ string
	take("type", &typ)
	c.Type = ContentType(typ)
	take("value", &c.Value)
	take("base64", &c.Base64)
	take("format", &c.Format)
	take("image_number", &c.ImageNumber)

	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

func (c ContentItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+5)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["type"] = string(c.Type)
	if c.Type == ContentText || c.Value != "" {
		out["value"] = c.Value
	}
	if c.Base64 != "" {
		out["base64"] = c.Base64
	}
	if c.Format != "" {
		out["format"] = c.Format
	}
	if c.ImageNumber != 0 {
		out["image_number"] = c.ImageNumber
	}
	return json.Marshal(out)
}
