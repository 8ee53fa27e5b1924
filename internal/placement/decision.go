package placement

import "fmt"

// Kind is the outcome category of a placement.
type Kind int

const (
	// Failed is the zero Kind: the placement did not complete.
	Failed Kind = iota
	Moved
	AlreadyInPlace
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Failed:
		return "failed"
	case Moved:
		return "moved"
	case AlreadyInPlace:
		return "already in place"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason explains a Skipped decision.
type Reason string

const (
	ReasonDestinationExists Reason = "destination exists"
	ReasonUnresolvableDate  Reason = "unresolvable date"
)

// Decision is the result of placing one file. From is the source path; To is
// the destination (empty when no destination could be computed).
type Decision struct {
	Kind   Kind
	Reason Reason
	From   string
	To     string
}

func (d Decision) String() string {
	switch d.Kind {
	case Moved:
		return fmt.Sprintf("%s -> %s", d.From, d.To)
	case AlreadyInPlace:
		return fmt.Sprintf("%s (already in place)", d.From)
	case Failed:
		return fmt.Sprintf("%s (failed)", d.From)
	default:
		return fmt.Sprintf("%s (skipped: %s)", d.From, d.Reason)
	}
}

// Unresolvable is the decision for a file no resolver could date.
func Unresolvable(file string) Decision {
	return Decision{Kind: Skipped, Reason: ReasonUnresolvableDate, From: file}
}
