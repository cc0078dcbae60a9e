package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

const defaultConfidence = "low"

// DecodeVerification classifies a verification payload. It never fails:
// unexpected shapes decode as VerificationUnknown and missing report fields
// take their defaults.
func DecodeVerification(raw json.RawMessage) entity.Verification {
	trimmed := bytes.TrimSpace(raw)
	v := entity.Verification{Raw: append(json.RawMessage(nil), trimmed...)}

	if len(trimmed) == 0 || string(trimmed) == "null" {
		v.Kind = entity.VerificationAbsent
		v.Raw = nil
		return v
	}

	switch trimmed[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			v.Kind = entity.VerificationUnknown
			return v
		}
		v.Kind = entity.VerificationErrors
		v.Errors = make([]string, 0, len(items))
		for _, it := range items {
			v.Errors = append(v.Errors, stringify(it))
		}
	case '{':
		report, err := decodeReport(trimmed)
		if err != nil {
			v.Kind = entity.VerificationUnknown
			return v
		}
		v.Kind = entity.VerificationScored
		v.Report = report
	default:
		v.Kind = entity.VerificationUnknown
	}
	return v
}

type reportEnvelope struct {
	OverallScore    any             `json:"overall_score"`
	IsAuthentic     any             `json:"is_authentic"`
	ConfidenceLevel any             `json:"confidence_level"`
	Checks          json.RawMessage `json:"checks"`
	Error           any             `json:"error"`
}

func decodeReport(raw []byte) (*entity.VerificationReport, error) {
	var env reportEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}

	r := &entity.VerificationReport{
		OverallScore:    toFloat(env.OverallScore),
		ConfidenceLevel: defaultConfidence,
	}
	r.IsAuthentic, _ = env.IsAuthentic.(bool)
	if s, ok := env.ConfidenceLevel.(string); ok && s != "" {
		r.ConfidenceLevel = s
	}
	if env.Error != nil {
		if s := stringify(env.Error); s != "" && s != "false" {
			r.Error = s
		}
	}

	if isObject(env.Checks) {
		checks := &entity.FlatRecord{}
		if err := checks.UnmarshalJSON(env.Checks); err != nil {
			return nil, err
		}
		for _, c := range checks.Fields() {
			r.Checks = append(r.Checks, decodeCheck(c.Key, c.Value))
		}
	}
	return r, nil
}

func decodeCheck(name string, v any) entity.VerificationCheck {
	c := entity.VerificationCheck{Name: name, Details: "No details available"}
	m, ok := v.(map[string]any)
	if !ok {
		return c
	}
	c.Passed, _ = m["passed"].(bool)
	c.Score = toFloat(m["score"])
	if d, ok := m["details"]; ok && d != nil {
		if s := stringify(d); s != "" {
			c.Details = s
		}
	}
	return c
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
