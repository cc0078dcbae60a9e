package constants

import (
	"fmt"
	"strings"
)

// Mode is the document workflow the dashboard is operating in.
type Mode string

// Stable values (sent to the backend as doc_type).
const (
	ModeCIN      Mode = "cin"      // national ID card, front + back images
	ModePassport Mode = "passport" // single image
	ModeContract Mode = "contract" // single PDF
)

// AllModes lists the selectable modes in display order.
var AllModes = []Mode{ModeCIN, ModePassport, ModeContract}

// Upload slots (multipart field names).
const (
	SlotFront = "front"
	SlotBack  = "back"
	SlotFile  = "file"
)

// Preview max heights in pixels.
const (
	PairPreviewMaxHeight   = 250
	SinglePreviewMaxHeight = 400
)

// ParseMode normalizes and validates a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown document mode %q", s)
}

// Label returns the human name used in the mode selector.
func (m Mode) Label() string {
	switch m {
	case ModeCIN:
		return "CIN (front & back)"
	case ModePassport:
		return "Passport"
	case ModeContract:
		return "Contract (PDF)"
	}
	return string(m)
}

// UploadPath is the backend endpoint for the mode.
func (m Mode) UploadPath() string {
	switch m {
	case ModeCIN:
		return "/ocr/upload/cin"
	case ModePassport:
		return "/ocr/upload/passport"
	case ModeContract:
		return "/ocr/upload/pdf"
	}
	return ""
}

// Slots returns the multipart fields required by the mode, in upload order.
func (m Mode) Slots() []string {
	if m == ModeCIN {
		return []string{SlotFront, SlotBack}
	}
	return []string{SlotFile}
}

// MissingFilesMessage is the alert shown when required files are absent.
func (m Mode) MissingFilesMessage() string {
	switch m {
	case ModeCIN:
		return "Please select both front and back images for CIN"
	case ModePassport:
		return "Please select an image file for Passport"
	case ModeContract:
		return "Please select a PDF file for Contract"
	}
	return "Please select a file"
}

// PreviewMaxHeight is the rendered image height cap for the mode.
func (m Mode) PreviewMaxHeight() int {
	if m == ModeCIN {
		return PairPreviewMaxHeight
	}
	return SinglePreviewMaxHeight
}

// AcceptsPDF reports whether the mode previews PDFs rather than images.
func (m Mode) AcceptsPDF() bool {
	return m == ModeContract
}

// ModeFromDocType maps a stored record's doc_type to a dashboard mode.
// The backend stores contracts as "pdf".
func ModeFromDocType(docType string) (Mode, error) {
	if strings.EqualFold(strings.TrimSpace(docType), "pdf") {
		return ModeContract, nil
	}
	return ParseMode(docType)
}
