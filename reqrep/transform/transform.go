// Package transform defines the three-method transform contract (Name,
// Configure, ShouldApply+Apply) and the parameter bag used to configure
// instances from persisted, opaque JSON blobs. Concrete transforms live in
// the builtin subpackage.
package transform

import (
	"context"
	"errors"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
)

// ErrMissingParam is returned by Configure when a required parameter key is
// absent from the parameter bag. It carries the key name via errors.Is /
// the wrapped message.
var ErrMissingParam = errors.New("transform: missing required parameter")

// Transform is the part of the contract common to both families: a stable
// kebab-case name used in logs and traces, and a one-time Configure step.
type Transform interface {
	// Name returns the stable, kebab-case transform kind, e.g.
	// "correlation-id" or "jwt-claims-extract".
	Name() string

	// Configure consumes the row's parameter bag. It is called exactly
	// once, right after construction, before the instance is used for
	// any request. Instances hold no other per-request mutable state.
	Configure(params *ParamBag) error
}

// BufferedTransform receives the buffered context view: it may touch
// headers, address, method, the buffered body, and the JSON tree.
type BufferedTransform interface {
	Transform

	// ShouldApply is synchronous and allocation-free; it must never block.
	ShouldApply(ctx *msgctx.BufferedView) bool

	// Apply performs the mutation. ctx carries the logical AND of the
	// exchange's abort signal and the per-transform deadline.
	Apply(ctx context.Context, mc *msgctx.BufferedView) error
}

// StreamingTransform receives the streaming context view: it may touch
// headers and address only. The view's Payload() method returns a
// payload.StreamingPayload, which exposes no JSON or buffer accessor at
// all, so a streaming transform cannot even name one.
type StreamingTransform interface {
	Transform

	ShouldApply(ctx *msgctx.StreamingView) bool
	Apply(ctx context.Context, mc *msgctx.StreamingView) error
}

// Factory constructs a fresh, unconfigured Transform instance. The detail
// builder calls a Factory once per route-row resolution, then calls
// Configure exactly once on the result.
type Factory func() Transform

// Catalog maps a transformer-key (as persisted in a route row) to a
// Factory. It stands in for the host's keyed-transient service-container
// lookup referenced in the design: each New call hands back a brand new,
// unconfigured instance.
type Catalog struct {
	factories map[string]Factory
}

// NewCatalog builds an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a transformer-key to the catalog. Registering the same key
// twice replaces the previous factory.
func (c *Catalog) Register(key string, factory Factory) {
	c.factories[key] = factory
}

// New looks up a transformer-key and, if present, constructs a fresh
// instance.
func (c *Catalog) New(key string) (Transform, bool) {
	factory, ok := c.factories[key]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Keys returns the registered transformer-keys, for diagnostics.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.factories))
	for k := range c.factories {
		keys = append(keys, k)
	}
	return keys
}
