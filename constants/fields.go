package constants

// NonEditableFields are metadata keys that never get an edit control
// and are skipped by the flat renderer.
var NonEditableFields = map[string]struct{}{
	"_id":          {},
	"user_id":      {},
	"filename":     {},
	"doc_type":     {},
	"success":      {},
	"message":      {},
	"timestamp":    {},
	"verification": {},
	"tables":       {},
	"images":       {},
}

const (
	// LongTextThreshold is the string length above which a multi-line control is used.
	LongTextThreshold = 80

	// MaxPreviewPages caps how many PDF pages are rasterized for preview.
	MaxPreviewPages = 5

	// PreviewScale is the page zoom for PDF previews (72 DPI * scale).
	PreviewScale = 1.2
)

// IsNonEditableField reports whether key is in the metadata denylist.
func IsNonEditableField(key string) bool {
	_, ok := NonEditableFields[key]
	return ok
}
