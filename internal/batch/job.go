package batch

import "time"

// Outcome classifies what happened to one scanned file.
type Outcome string

const (
	// OutcomeConverted means LibreOffice produced the target file.
	OutcomeConverted Outcome = "converted"
	// OutcomeCopied means the file was already in the target format and was
	// copied through unchanged.
	OutcomeCopied Outcome = "copied"
	// OutcomeSkipped means the file is not eligible for conversion.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the conversion was attempted and did not produce
	// the target file.
	OutcomeFailed Outcome = "failed"
)

// Job is one planned unit of work: a source document and the destination
// file it becomes. Jobs are immutable once planned and consumed exactly once.
type Job struct {
	SourcePath   string // absolute path under the source root
	DestPath     string // absolute path under the destination root
	RelPath      string // source path relative to the root, slash-separated
	OutputRel    string // destination path relative to its root, slash-separated
	SourceFormat string
	TargetFormat string
	Passthrough  bool
}

// Result records the outcome for one scanned file. Reason is set for skipped
// and failed files; Duration covers the conversion or copy only. The format
// pair is set for files that reached a worker.
type Result struct {
	Path         string        `json:"path"`
	Output       string        `json:"output,omitempty"`
	Outcome      Outcome       `json:"outcome"`
	Reason       string        `json:"reason,omitempty"`
	SourceFormat string        `json:"source_format,omitempty"`
	TargetFormat string        `json:"target_format,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Summary aggregates one full batch pass. Results keep the order in which
// files were discovered during traversal, independent of completion order.
type Summary struct {
	Total       int           `json:"total"`
	Converted   int           `json:"converted"`
	Copied      int           `json:"copied"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	FailedFiles []string      `json:"failed_files,omitempty"`
	Results     []Result      `json:"results"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Success reports whether the pass completed without per-file failures.
func (s *Summary) Success() bool {
	return s.Failed == 0
}

func (s *Summary) add(r Result) {
	s.Total++
	s.Results = append(s.Results, r)

	switch r.Outcome {
	case OutcomeConverted:
		s.Converted++
	case OutcomeCopied:
		s.Copied++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		s.FailedFiles = append(s.FailedFiles, r.Path)
	}
}
