package pipeline

import (
	"time"

	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
)

// GlobalOptions are the process-wide defaults bound once at startup and
// never mutated afterward. A route's plan.Detail overrides these per-field
// when it carries an explicit value; see Executor's effective-config
// resolution.
type GlobalOptions struct {
	DefaultTimeout     time.Duration
	DefaultFailureMode plan.FailureMode
	RedactedHeaderKeys []string
	RedactedQueryKeys  []string
}

// DefaultGlobalOptions returns the documented defaults: a 5s timeout and
// LogAndSkip as the failure mode. The redacted key slices are left nil,
// which redact.New treats as "use the package default sets".
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		DefaultTimeout:     5 * time.Second,
		DefaultFailureMode: plan.LogAndSkip,
	}
}
