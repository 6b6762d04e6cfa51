// Package config binds the ReqRepTransformation configuration section into
// immutable GlobalOptions and a Redactor, the way the host's configuration
// loader would unmarshal one JSON section into a typed struct.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agaheman/ReqRepTransformation/reqrep/pipeline"
	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
	"github.com/agaheman/ReqRepTransformation/reqrep/redact"
)

// Options is the on-disk/JSON shape of the ReqRepTransformation
// configuration section. Bind converts it into pipeline.GlobalOptions and
// a *redact.Redactor; Options itself is discarded once bound.
type Options struct {
	DefaultTimeout     string   `json:"DefaultTimeout"`
	DefaultFailureMode string   `json:"DefaultFailureMode"`
	RedactedHeaderKeys []string `json:"RedactedHeaderKeys"`
	RedactedQueryKeys  []string `json:"RedactedQueryKeys"`
}

// Bound is the immutable result of binding one Options value: the global
// pipeline defaults plus the redaction policy built from the same keys.
// Once returned it must not be mutated; rebuild (don't edit) to change
// configuration.
type Bound struct {
	Global   pipeline.GlobalOptions
	Redactor *redact.Redactor
}

// Default returns the documented defaults with no overrides applied:
// DefaultTimeout=5s, DefaultFailureMode=LogAndSkip, and the package
// default redaction sets.
func Default() Bound {
	return Bound{
		Global:   pipeline.DefaultGlobalOptions(),
		Redactor: redact.New(nil, nil),
	}
}

// Bind parses a raw JSON object under the ReqRepTransformation section and
// produces a Bound. An empty or absent field falls back to the documented
// default for that field; a malformed DefaultTimeout/DefaultFailureMode is
// an error, since those are explicit operator configuration, not
// best-effort row data like a transform's parameter bag.
func Bind(raw []byte) (Bound, error) {
	bound := Default()
	if len(raw) == 0 {
		return bound, nil
	}

	var opts Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return Bound{}, fmt.Errorf("config: failed to parse ReqRepTransformation section: %w", err)
	}

	if opts.DefaultTimeout != "" {
		d, err := time.ParseDuration(opts.DefaultTimeout)
		if err != nil {
			return Bound{}, fmt.Errorf("config: invalid DefaultTimeout %q: %w", opts.DefaultTimeout, err)
		}
		bound.Global.DefaultTimeout = d
	}

	if opts.DefaultFailureMode != "" {
		mode, err := parseFailureModeKeyword(opts.DefaultFailureMode)
		if err != nil {
			return Bound{}, err
		}
		bound.Global.DefaultFailureMode = mode
	}

	if len(opts.RedactedHeaderKeys) > 0 {
		bound.Global.RedactedHeaderKeys = opts.RedactedHeaderKeys
	}
	if len(opts.RedactedQueryKeys) > 0 {
		bound.Global.RedactedQueryKeys = opts.RedactedQueryKeys
	}
	bound.Redactor = redact.New(bound.Global.RedactedHeaderKeys, bound.Global.RedactedQueryKeys)

	return bound, nil
}

// parseFailureModeKeyword accepts the PascalCase spellings used in the
// configuration section (StopPipeline, Continue, LogAndSkip), distinct
// from plan.ParseFailureMode's kebab-case row-level spelling.
func parseFailureModeKeyword(s string) (plan.FailureMode, error) {
	switch s {
	case "StopPipeline":
		return plan.StopPipeline, nil
	case "Continue":
		return plan.Continue, nil
	case "LogAndSkip":
		return plan.LogAndSkip, nil
	default:
		return 0, fmt.Errorf("config: unknown DefaultFailureMode %q", s)
	}
}
