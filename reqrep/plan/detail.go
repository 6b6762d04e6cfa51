// Package plan holds the resolved, ready-to-execute transformation plan for
// one route: the ordered transform entries for each side plus the
// timeout/failure-mode/concurrency options that govern how the executor
// runs them.
package plan

import (
	"fmt"
	"time"

	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// FailureMode controls what the executor does when a transform's Apply call
// returns an error.
type FailureMode int

const (
	// StopPipeline aborts the remaining entries on this side and surfaces a
	// TransformationFailure to the host.
	StopPipeline FailureMode = iota
	// Continue runs the remaining entries as if the failing one had
	// succeeded; the error is only logged.
	Continue
	// LogAndSkip is like Continue, but the executor is expected to emit a
	// warning-level log entry naming the failing transform.
	LogAndSkip
)

func (m FailureMode) String() string {
	switch m {
	case Continue:
		return "continue"
	case LogAndSkip:
		return "log-and-skip"
	default:
		return "stop-pipeline"
	}
}

// ParseFailureMode parses a configuration string into a FailureMode. An
// empty string is not a valid input; callers that need "no explicit mode"
// semantics should track that separately (see Detail.HasExplicitFailureMode)
// rather than relying on FailureMode's zero value, so that an absent
// configuration never silently escalates into StopPipeline.
func ParseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "stop-pipeline":
		return StopPipeline, nil
	case "continue":
		return Continue, nil
	case "log-and-skip":
		return LogAndSkip, nil
	default:
		return 0, fmt.Errorf("plan: unknown failure mode %q", s)
	}
}

// Entry pairs a configured transform with its execution order within a
// side's entry list. Lower Order values run first; ties are broken by
// resolver insertion order (a stable sort).
type Entry struct {
	Order     int
	Transform transform.Transform
}

// Detail is the fully resolved plan for one route: what runs on each side,
// and the options that govern how it runs. A Detail is immutable once
// built by resolver.Builder; the executor never mutates it.
type Detail struct {
	Request  []Entry
	Response []Entry

	// Timeout is the per-transform deadline. Zero means "no explicit
	// per-route timeout"; the executor falls back to its global default.
	Timeout time.Duration

	// FailureMode is only meaningful when HasExplicitFailureMode is true.
	// Its zero value is StopPipeline, which is why HasExplicitFailureMode
	// exists: an unconfigured route must fall back to the executor's
	// global default failure mode, not silently behave as StopPipeline.
	FailureMode            FailureMode
	HasExplicitFailureMode bool

	// AllowParallelNonDependent opts a side into the executor's
	// errgroup-based fan-out path instead of sequential execution.
	AllowParallelNonDependent bool
}

// Empty is the resolved plan for a route with no matching rows: no
// transforms run on either side, and every option falls back to the
// executor's global defaults.
var Empty = Detail{}

// Equal reports whether d and other describe the same plan. Entry order
// matters; two entries are equal when their Order and Transform.Name()
// match (transform identity is the name, not pointer identity, since two
// Builder runs over the same rows produce distinct Transform instances;
// configured parameter values are not compared).
func (d Detail) Equal(other Detail) bool {
	if !entriesEqual(d.Request, other.Request) || !entriesEqual(d.Response, other.Response) {
		return false
	}
	return d.Timeout == other.Timeout &&
		d.FailureMode == other.FailureMode &&
		d.HasExplicitFailureMode == other.HasExplicitFailureMode &&
		d.AllowParallelNonDependent == other.AllowParallelNonDependent
}

func entriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Order != b[i].Order {
			return false
		}
		aName, bName := "", ""
		if a[i].Transform != nil {
			aName = a[i].Transform.Name()
		}
		if b[i].Transform != nil {
			bName = b[i].Transform.Name()
		}
		if aName != bName {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the plan has no entries on either side.
func (d Detail) IsEmpty() bool {
	return len(d.Request) == 0 && len(d.Response) == 0
}
