package pipeline

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/distmatrix"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
)

// Artifact is one written (or failed) output file.
type Artifact struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the artifact could not be written.
func (a Artifact) Failed() bool {
	return a.Error != ""
}

// Summary describes a finished run. It is what sinks receive and what the
// ledger stores.
type Summary struct {
	RunID      string             `json:"run_id"`
	Source     string             `json:"source"`
	Status     string             `json:"status"`
	Total      int                `json:"total"`
	Valid      int                `json:"valid"`
	Rejected   int                `json:"rejected"`
	Degraded   int                `json:"degraded"`
	RejectedBy map[string]int     `json:"rejected_by,omitempty"`
	Dimension  int                `json:"dimension"`
	ChunkSize  int                `json:"chunk_size"`
	Chunks     int                `json:"chunks"`
	Stars      projection.Summary `json:"stars"`
	Matrix     distmatrix.Stats   `json:"matrix"`
	Artifacts  []Artifact         `json:"artifacts"`
	Stages     map[string]int64   `json:"stages_ms,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// ArtifactPath returns the path written for kind, or "".
func (s Summary) ArtifactPath(kind string) string {
	for _, a := range s.Artifacts {
		if a.Kind == kind && !a.Failed() {
			return a.Path
		}
	}
	return ""
}

// fill copies counts and statistics. Matrix statistics skip zero entries so
// the diagonal does not drag the minimum to zero.
func (s *Summary) fill(report projection.Report, stars []projection.Star, m *distmatrix.Matrix) {
	s.Total = report.Total
	s.Valid = report.Valid()
	s.Rejected = report.Rejected()
	s.Degraded = report.Degraded
	if byReason := report.RejectedBy(); len(byReason) > 0 {
		s.RejectedBy = make(map[string]int, len(byReason))
		for reason, n := range byReason {
			s.RejectedBy[reason.String()] = n
		}
	}
	s.Dimension = m.Len()
	s.Stars = projection.Summarize(stars)
	s.Matrix = m.NonZeroStats()
}
