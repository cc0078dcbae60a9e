package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlatRecord is an ordered field map. Order is the order the backend sent.
type FlatRecord struct {
	fields []Field
	index  map[string]int
}

// NewFlatRecord builds a record from fields, later duplicates overwriting earlier ones.
func NewFlatRecord(fields ...Field) *FlatRecord {
	r := &FlatRecord{}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

func (*FlatRecord) isRecord() {}

func (*FlatRecord) Kind() RecordKind { return KindFlat }

func (r *FlatRecord) Len() int { return len(r.fields) }

func (r *FlatRecord) IsEmpty() bool { return len(r.fields) == 0 }

// Get returns the value stored at key.
func (r *FlatRecord) Get(key string) (any, bool) {
	if r.index == nil {
		return nil, false
	}
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Set stores value at key, keeping the key's position if it already exists.
func (r *FlatRecord) Set(key string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

func (r *FlatRecord) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *FlatRecord) Clone() Record {
	out := &FlatRecord{
		fields: make([]Field, len(r.fields)),
		index:  make(map[string]int, len(r.fields)),
	}
	for i, f := range r.fields {
		out.fields[i] = Field{Key: f.Key, Value: cloneValue(f.Value)}
		out.index[f.Key] = i
	}
	return out
}

func (r *FlatRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Numbers are kept
// as json.Number so integers render without float formatting.
func (r *FlatRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("flat record: expected object, got %v", tok)
	}

	r.fields = nil
	r.index = make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("flat record: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("flat record: field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
