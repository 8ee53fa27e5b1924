package batch

import (
	"time"

	"datesort/internal/placement"
)

// Outcome is the per-file result of one pipeline run. Exactly one is produced
// for every discovered file. Err is set for filesystem faults, in which case
// Decision.Kind is placement.Failed.
type Outcome struct {
	Root     string
	File     string
	Date     time.Time
	Resolver string
	Decision placement.Decision
	Err      error
}

// Failed reports whether the file hit a filesystem fault.
func (o Outcome) Failed() bool { return o.Err != nil }

// Stats tallies outcomes.
type Stats struct {
	Total          int
	Moved          int
	AlreadyInPlace int
	Collisions     int
	Unresolvable   int
	Failed         int
}

// Add counts one outcome.
func (s *Stats) Add(o Outcome) {
	s.Total++
	switch {
	case o.Failed():
		s.Failed++
	case o.Decision.Kind == placement.Moved:
		s.Moved++
	case o.Decision.Kind == placement.AlreadyInPlace:
		s.AlreadyInPlace++
	case o.Decision.Reason == placement.ReasonUnresolvableDate:
		s.Unresolvable++
	default:
		s.Collisions++
	}
}

func (s *Stats) merge(other Stats) {
	s.Total += other.Total
	s.Moved += other.Moved
	s.AlreadyInPlace += other.AlreadyInPlace
	s.Collisions += other.Collisions
	s.Unresolvable += other.Unresolvable
	s.Failed += other.Failed
}

// RootStats are the tallies and outcomes for one source root. Outcomes are in
// completion order, which is discovery order with a single worker.
type RootStats struct {
	Root     string
	Stats    Stats
	Outcomes []Outcome
}

// Summary is the result of a whole run.
type Summary struct {
	Roots  []RootStats
	Total  Stats
	DryRun bool
	// Dropped are outcomes the events channel could not take.
	Dropped []Outcome
	Elapsed time.Duration
}
