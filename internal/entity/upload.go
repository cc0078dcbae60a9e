package entity

import "github.com/joseph-ayodele/ocr-dashboard/constants"

// File is a user-selected file waiting to be previewed or uploaded.
type File struct {
	Slot        string
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult is a normalized backend upload response.
type UploadResult struct {
	Mode         constants.Mode
	Record       Record
	Verification Verification
	RecordID     string
	Message      string
}

// HistoryEntry is one row of the user's upload history. ID is only set when
// the backend includes it.
type HistoryEntry struct {
	ID        string `json:"id,omitempty"`
	DocType   string `json:"doc_type"`
	Filename  string `json:"filename"`
	Username  string `json:"username,omitempty"`
	Timestamp string `json:"timestamp"`
}
