// Package pipeline implements the ordered transformation executor: it
// sorts a plan's entries, dispatches each through the typed context view
// matching its family, and enforces per-transform timeout, cancellation,
// and failure-mode policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
	"github.com/agaheman/ReqRepTransformation/reqrep/redact"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// ErrTimeout is synthesized when a transform's effective per-transform
// deadline fires before Apply returns.
var ErrTimeout = errors.New("pipeline: transform timed out")

// TransformationFailure is raised to the host when the effective failure
// mode is StopPipeline. The host is expected to translate it into a 502
// and abort forwarding (request side) or serving the mutated response
// (response side).
type TransformationFailure struct {
	Name string
	Side msgctx.Side
	Err  error
}

func (f *TransformationFailure) Error() string {
	return fmt.Sprintf("reqrep: %s transformation failed in %q: %v", f.Side, f.Name, f.Err)
}

func (f *TransformationFailure) Unwrap() error { return f.Err }

// Executor runs a plan.Detail's entries against one Message Context,
// enforcing effective timeout/failure-mode resolution and the
// sequential/parallel dispatch policy described by the plan.
type Executor struct {
	global GlobalOptions
	log    *zap.Logger
	red    *redact.Redactor
	m      *metrics
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithLogger overrides the executor's logger. The default is zap's no-op
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithMetrics registers the executor's counters against reg. Passing nil
// (the default) disables metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Executor) { e.m = newMetrics(reg) }
}

// WithRedactor overrides the redaction policy applied to addresses before
// they appear in a log field. The default is built from the GlobalOptions
// redacted key sets, which fall back to the package defaults when nil.
func WithRedactor(r *redact.Redactor) Option {
	return func(e *Executor) {
		if r != nil {
			e.red = r
		}
	}
}

// NewExecutor builds an Executor bound to global and configured by opts.
func NewExecutor(global GlobalOptions, opts ...Option) *Executor {
	e := &Executor{
		global: global,
		log:    zap.NewNop(),
		red:    redact.New(global.RedactedHeaderKeys, global.RedactedQueryKeys),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunRequest runs the request-side entries of detail over ctx.
func (e *Executor) RunRequest(ctx context.Context, mc *msgctx.Context, detail plan.Detail) error {
	return e.run(ctx, mc, detail, detail.Request, msgctx.SideRequest)
}

// RunResponse runs the response-side entries of detail over ctx.
func (e *Executor) RunResponse(ctx context.Context, mc *msgctx.Context, detail plan.Detail) error {
	return e.run(ctx, mc, detail, detail.Response, msgctx.SideResponse)
}

func (e *Executor) run(ctx context.Context, mc *msgctx.Context, detail plan.Detail, entries []plan.Entry, side msgctx.Side) error {
	timeout := detail.Timeout
	if timeout <= 0 {
		timeout = e.global.DefaultTimeout
	}
	failureMode := e.global.DefaultFailureMode
	if detail.HasExplicitFailureMode {
		failureMode = detail.FailureMode
	}

	sorted := make([]plan.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	e.log.Debug("reqrep.pipeline.start",
		zap.String("pipeline.side", side.String()),
		zap.String("http.request.method", mc.Method()),
		zap.String("http.request.address", e.red.URL(mc.Address())),
		zap.Int("entries", len(sorted)),
	)

	var err error
	if detail.AllowParallelNonDependent {
		err = e.runParallel(ctx, mc, sorted, side, timeout, failureMode)
	} else {
		err = e.runSequential(ctx, mc, sorted, side, timeout, failureMode)
	}

	if err != nil {
		e.log.Warn("reqrep.pipeline.aborted", zap.String("side", side.String()), zap.Error(err))
	} else {
		e.log.Debug("reqrep.pipeline.stop", zap.String("side", side.String()))
	}
	return err
}

func (e *Executor) runSequential(ctx context.Context, mc *msgctx.Context, sorted []plan.Entry, side msgctx.Side, timeout time.Duration, failureMode plan.FailureMode) error {
	for _, entry := range sorted {
		if err := e.step(ctx, mc, entry, side, timeout, failureMode); err != nil {
			return err
		}
	}
	return nil
}

// runParallel fans every entry out as an independent task and waits for
// all of them. It is intended strictly for mutually commutative,
// non-JSON-mutating transforms; it never reorders with respect to Order,
// it simply removes the sequential wait between entries.
func (e *Executor) runParallel(ctx context.Context, mc *msgctx.Context, sorted []plan.Entry, side msgctx.Side, timeout time.Duration, failureMode plan.FailureMode) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range sorted {
		entry := entry
		g.Go(func() error {
			return e.step(gctx, mc, entry, side, timeout, failureMode)
		})
	}
	return g.Wait()
}

func (e *Executor) step(ctx context.Context, mc *msgctx.Context, entry plan.Entry, side msgctx.Side, timeout time.Duration, failureMode plan.FailureMode) error {
	name := entry.Transform.Name()

	shouldApply, err := e.shouldApply(mc, entry.Transform, side)
	if err != nil {
		return err
	}
	if !shouldApply {
		e.log.Debug("reqrep.transform.skip",
			zap.String("transform.side", side.String()),
			zap.String("transform.name", name),
			zap.Int("transform.order", entry.Order),
		)
		e.m.recordSkipped(side.String(), name)
		return nil
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	applyErr := e.apply(stepCtx, mc, entry.Transform, side)
	elapsed := time.Since(start)

	if applyErr == nil {
		e.log.Debug("reqrep.transform.complete",
			zap.String("transform.side", side.String()),
			zap.String("transform.name", name),
			zap.Int("transform.order", entry.Order),
			zap.String("payload.content_type", mc.Payload().ContentType()),
			zap.Duration("elapsed", elapsed),
		)
		e.m.recordExecuted(side.String(), name, elapsed.Seconds())
		return nil
	}

	if ctx.Err() != nil {
		// The exchange's own abort signal fired, not our per-transform
		// deadline: this propagates as a client abort, not a pipeline
		// failure subject to failure-mode policy.
		return ctx.Err()
	}

	if stepCtx.Err() == context.DeadlineExceeded {
		applyErr = fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}

	return e.handleFailure(side, name, applyErr, failureMode)
}

func (e *Executor) shouldApply(mc *msgctx.Context, t transform.Transform, side msgctx.Side) (bool, error) {
	switch tt := t.(type) {
	case transform.BufferedTransform:
		return tt.ShouldApply(mc.Buffered()), nil
	case transform.StreamingTransform:
		return tt.ShouldApply(mc.Streaming()), nil
	default:
		return false, fmt.Errorf("pipeline: transform %q implements neither BufferedTransform nor StreamingTransform", t.Name())
	}
}

func (e *Executor) apply(ctx context.Context, mc *msgctx.Context, t transform.Transform, side msgctx.Side) error {
	switch tt := t.(type) {
	case transform.BufferedTransform:
		return tt.Apply(ctx, mc.Buffered())
	case transform.StreamingTransform:
		return tt.Apply(ctx, mc.Streaming())
	default:
		return fmt.Errorf("pipeline: transform %q implements neither BufferedTransform nor StreamingTransform", t.Name())
	}
}

func (e *Executor) handleFailure(side msgctx.Side, name string, applyErr error, failureMode plan.FailureMode) error {
	reason := "error"
	if errors.Is(applyErr, ErrTimeout) {
		reason = "timeout"
	}
	e.m.recordFailed(side.String(), name, reason)

	switch failureMode {
	case plan.StopPipeline:
		e.log.Error("reqrep.transform.failed", zap.String("side", side.String()), zap.String("transform.name", name), zap.Error(applyErr))
		return &TransformationFailure{Name: name, Side: side, Err: applyErr}
	case plan.Continue:
		e.log.Info("reqrep.transform.failed", zap.String("side", side.String()), zap.String("transform.name", name), zap.Error(applyErr))
		return nil
	default: // plan.LogAndSkip
		e.log.Warn("reqrep.transform.failed", zap.String("side", side.String()), zap.String("transform.name", name), zap.Error(applyErr))
		return nil
	}
}
