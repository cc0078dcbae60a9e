package entity

// RecordKind tags the two shapes an Extraction Result can take.
type RecordKind string

const (
	KindFlat      RecordKind = "flat"      // ID card / passport field map
	KindPaginated RecordKind = "paginated" // contract text + pages
)

// Record is the normalized extraction held by an edit session. It is one of
// *FlatRecord or *PaginatedRecord.
type Record interface {
	Kind() RecordKind
	// Clone returns a deep copy that shares no mutable state.
	Clone() Record
	// IsEmpty reports whether there is nothing to display.
	IsEmpty() bool
	// Fields lists top-level entries in display order, as they appear in JSON.
	Fields() []Field
	MarshalJSON() ([]byte, error)

	isRecord()
}

// Field is one top-level key/value pair.
type Field struct {
	Key   string
	Value any
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		if t == nil {
			return []any(nil)
		}
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

func cloneSlice(in []any) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = cloneValue(v)
	}
	return out
}
