package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// pagesSchema constrains the page list wherever it appears.
func pagesSchema() map[string]any {
	return map[string]any{
		"type": []any{"array", "null"},
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page_number": map[string]any{"type": []any{"integer", "null"}},
				"content": map[string]any{
					"type": []any{"array", "null"},
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

// BuildEnvelopeJSONSchema returns the schema for the upload response fields
// the normalizer reads. Values it rejects are replaced by their defaults
// before classification.
func BuildEnvelopeJSONSchema() map[string]any {
	extracted := map[string]any{
		"properties": map[string]any{
			"pages": pagesSchema(),
			"text":  map[string]any{"type": []any{"string", "null"}},
		},
	}
	props := map[string]any{
		"text":           map[string]any{"type": []any{"string", "null"}},
		"tables":         map[string]any{"type": []any{"array", "null"}},
		"images":         map[string]any{"type": []any{"array", "null"}},
		"record_id":      map[string]any{"type": []any{"string", "number", "null"}},
		"extracted_data": extracted,
		"extracted_text": extracted,
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// BuildStoredRecordJSONSchema wraps the envelope schema for GET /ocr/record.
func BuildStoredRecordJSONSchema() map[string]any {
	record := BuildEnvelopeJSONSchema()
	props := record["properties"].(map[string]any)
	props["doc_type"] = map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"type":     "object",
		"required": []any{"record"},
		"properties": map[string]any{
			"record": record,
		},
	}
}

var (
	compileOnce    sync.Once
	envelopeSchema *jsonschema.Schema
	storedSchema   *jsonschema.Schema
	compileErr     error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		envelopeSchema, compileErr = compileSchema("envelope.json", BuildEnvelopeJSONSchema())
		if compileErr != nil {
			return
		}
		storedSchema, compileErr = compileSchema("record.json", BuildStoredRecordJSONSchema())
	})
	return envelopeSchema, storedSchema, compileErr
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// errRootMismatch reports a document whose top level the schema rejects.
// Nothing below the root can be defaulted in that case.
var errRootMismatch = errors.New("json does not match schema at the root")

// conform validates body against schema and rewrites every rejected value
// to its default. Untouched parts of body keep their bytes and key order.
func conform(schema *jsonschema.Schema, body []byte) ([]byte, error) {
	doc, err := decodeDoc(body)
	if err != nil {
		return nil, err
	}
	verr := schema.Validate(doc)
	if verr == nil {
		return body, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(verr, &ve) {
		return nil, verr
	}

	var paths [][]string
	seen := map[string]bool{}
	for _, loc := range leafLocations(ve) {
		if loc == "" {
			return nil, fmt.Errorf("%w: %v", errRootMismatch, verr)
		}
		if !seen[loc] {
			seen[loc] = true
			paths = append(paths, pointerTokens(loc))
		}
	}
	// Later array elements go first so removals do not shift pending indices.
	sort.Slice(paths, func(i, j int) bool { return comparePaths(paths[i], paths[j]) > 0 })

	for _, path := range paths {
		if body, err = resetAt(body, path); err != nil {
			return nil, err
		}
	}

	if doc, err = decodeDoc(body); err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}
	return body, nil
}

func decodeDoc(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after json document")
	}
	return doc, nil
}

func leafLocations(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.InstanceLocation}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafLocations(c)...)
	}
	return out
}

// pointerTokens splits a JSON pointer such as "/extracted_data/pages/0".
func pointerTokens(ptr string) []string {
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}

func comparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		ai, aerr := strconv.Atoi(a[i])
		bi, berr := strconv.Atoi(b[i])
		if aerr == nil && berr == nil {
			return ai - bi
		}
		return strings.Compare(a[i], b[i])
	}
	return len(a) - len(b)
}

// fieldDefault is what a rejected value becomes, keyed by field name.
func fieldDefault(key string) json.RawMessage {
	switch key {
	case "text", "type", "doc_type":
		return json.RawMessage(`""`)
	case "tables", "images", "pages":
		return json.RawMessage(`[]`)
	}
	return json.RawMessage(`null`)
}

type rawField struct {
	key   string
	value json.RawMessage
}

// resetAt replaces the object field at path with its default, or drops the
// array element at path.
func resetAt(raw json.RawMessage, path []string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return raw, nil
	}
	tok := path[0]

	switch trimmed[0] {
	case '{':
		fields, err := splitObject(trimmed)
		if err != nil {
			return nil, err
		}
		for i := range fields {
			if fields[i].key != tok {
				continue
			}
			if len(path) == 1 {
				fields[i].value = fieldDefault(tok)
			} else if fields[i].value, err = resetAt(fields[i].value, path[1:]); err != nil {
				return nil, err
			}
		}
		return joinObject(fields)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		i, err := strconv.Atoi(tok)
		if err != nil || i < 0 || i >= len(items) {
			return raw, nil
		}
		if len(path) == 1 {
			items = append(items[:i:i], items[i+1:]...)
		} else if items[i], err = resetAt(items[i], path[1:]); err != nil {
			return nil, err
		}
		if items == nil {
			return json.RawMessage(`[]`), nil
		}
		return json.Marshal(items)
	}
	return raw, nil
}

func splitObject(raw json.RawMessage) ([]rawField, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []rawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, rawField{key: key, value: v})
	}
	return fields, nil
}

func joinObject(fields []rawField) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
