// Package submit assembles and sends the end-of-session batch upload: one
// multipart request carrying the session identity, the recording metadata
// map, the skipped-token list, and one binary WAV part per recorded token.
package submit

import (
	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
)

// Entry is the metadata for one recorded token, keyed by token id in the
// payload's recordings map. Field names follow the collection server's wire
// contract.
type Entry struct {
	Filename      string           `json:"filename"`
	Settings      capture.Settings `json:"settings"`
	Transcription string           `json:"transcription,omitempty"`
	Analysis      string           `json:"analysis,omitempty"`
	Cut           *analyzer.Region `json:"cut,omitempty"`
}

// File is one binary audio part. Parts are sent in token index order under
// the form name "file_<token id>".
type File struct {
	TokenID  string
	Filename string
	Payload  []byte
}

// Payload is one complete submission batch.
type Payload struct {
	// Duration is the elapsed session time in seconds at submission.
	Duration float64

	// Identity pass-through fields.
	UserID       string
	ManagerID    string
	CollectionID string

	// Recordings maps token id to recording metadata. Tokens without a
	// recording do not appear.
	Recordings map[string]Entry

	// Skipped lists the ids of skipped tokens, in index order.
	Skipped []string

	// Files carries the binary payloads, in index order. Every key in
	// Recordings has exactly one corresponding File.
	Files []File
}
