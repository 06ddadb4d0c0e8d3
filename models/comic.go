// Package models defines data structures for the archiver.
package models

import (
	"encoding/json"
	"time"
)

// Comic is the metadata record for one numbered entry from the xkcd API.
// Only Num, the date fields, SafeTitle and ImageURL feed the output
// filename; the remaining fields are kept as the API returns them.
type Comic struct {
	Num        int             `json:"num"`
	Year       string          `json:"year"`
	Month      string          `json:"month"`
	Day        string          `json:"day"`
	Title      string          `json:"title"`
	SafeTitle  string          `json:"safe_title"`
	ImageURL   string          `json:"img"`
	Alt        string          `json:"alt"`
	News       string          `json:"news"`
	Link       string          `json:"link"`
	Transcript string          `json:"transcript"`
	ExtraParts json.RawMessage `json:"extra_parts,omitempty"`
}

// OutcomeKind enumerates the possible results of a metadata fetch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNotFound
	OutcomeTransportError
	OutcomeParseError
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result variant of a single metadata fetch.
// Comic is non-nil only when Kind is OutcomeSuccess.
type Outcome struct {
	Kind       OutcomeKind
	Comic      *Comic
	StatusCode int
	Err        error
}

// Success reports whether the fetch produced a usable record.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess && o.Comic != nil
}

// ArchiveResult holds the overall result of an archival run.
type ArchiveResult struct {
	StartTime        time.Time
	EndTime          time.Time
	LatestNum        int
	LatestDate       time.Time
	RequestCount     int
	DownloadCount    int
	SkippedExisting  int
	SkippedNoImage   int
	SkippedExtension int
	ErrorCount       int
	FailedComics     []int
	ErrorsByType     map[string]int
}
