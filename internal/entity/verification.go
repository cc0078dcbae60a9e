package entity

import "encoding/json"

// VerificationKind tags the shapes a verification payload can take.
type VerificationKind string

const (
	VerificationAbsent  VerificationKind = "absent"  // key missing or null
	VerificationErrors  VerificationKind = "errors"  // list of error strings
	VerificationScored  VerificationKind = "report"  // scored report
	VerificationUnknown VerificationKind = "unknown" // any other shape
)

// Verification is the decoded authenticity result of an upload.
type Verification struct {
	Kind   VerificationKind
	Errors []string
	Report *VerificationReport
	// Raw is the payload as received, kept for session persistence.
	Raw json.RawMessage
}

// VerificationReport is the scored form. Missing fields hold their defaults.
type VerificationReport struct {
	OverallScore    float64
	IsAuthentic     bool
	ConfidenceLevel string
	Checks          []VerificationCheck
	Error           string
}

// VerificationCheck is one named check, in the order the backend sent them.
type VerificationCheck struct {
	Name    string
	Passed  bool
	Score   float64
	Details string
}
