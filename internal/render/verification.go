package render

import (
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// Verification panel notices.
const (
	NoVerificationPerformed = "No verification performed for this document type."
	NoVerificationResults   = "No verification results available."
)

// VerificationView is what the verification panel shows.
type VerificationView struct {
	Kind entity.VerificationKind
	// Errors is set for the error-list shape.
	Errors []string
	Card   *ScoreCard
	Checks []CheckRow
	// ReportError is the report's own error field.
	ReportError string
	// Notice is the informational text for absent and unknown payloads.
	Notice string
	// Banner replaces everything else when the upload itself failed.
	Banner string
}

type ScoreCard struct {
	Authentic  bool
	Icon       string
	Status     string
	Score      string
	Confidence string
}

type CheckRow struct {
	Name    string
	Label   string
	Icon    string
	Passed  bool
	Details string
	Badge   string
}

// BuildVerificationView maps a decoded verification payload to its display.
func BuildVerificationView(v entity.Verification) VerificationView {
	view := VerificationView{Kind: v.Kind}
	switch v.Kind {
	case entity.VerificationErrors:
		view.Errors = append([]string{}, v.Errors...)
	case entity.VerificationScored:
		r := v.Report
		if r == nil {
			r = &entity.VerificationReport{ConfidenceLevel: "low"}
		}
		card := &ScoreCard{
			Authentic:  r.IsAuthentic,
			Icon:       "❌",
			Status:     "Not Authentic",
			Score:      FormatNumber(r.OverallScore) + "%",
			Confidence: "Confidence: " + r.ConfidenceLevel,
		}
		if r.IsAuthentic {
			card.Icon, card.Status = "✅", "Authentic"
		}
		view.Card = card
		for _, c := range r.Checks {
			row := CheckRow{
				Name:    c.Name,
				Label:   FormatKey(c.Name),
				Icon:    "❌",
				Passed:  c.Passed,
				Details: c.Details,
				Badge:   FormatNumber(c.Score) + " pts",
			}
			if c.Passed {
				row.Icon = "✅"
			}
			view.Checks = append(view.Checks, row)
		}
		view.ReportError = r.Error
	case entity.VerificationAbsent, "":
		view.Kind = entity.VerificationAbsent
		view.Notice = NoVerificationPerformed
	default:
		view.Notice = NoVerificationResults
	}
	return view
}

// FailureView is the verification panel after a failed upload.
func FailureView(message string) VerificationView {
	return VerificationView{Banner: message}
}
