package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// newHex32 produces a 32-character lowercase hex token with no dashes, the
// format used throughout the catalog for generated identifiers.
func newHex32() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CorrelationID injects an X-Correlation-Id header if one is not already
// present.
type CorrelationID struct {
	header string
}

func NewCorrelationID() transform.Transform { return &CorrelationID{header: "X-Correlation-Id"} }

func (t *CorrelationID) Name() string { return "correlation-id" }

func (t *CorrelationID) Configure(p *transform.ParamBag) error {
	t.header = p.String("header", "X-Correlation-Id")
	return nil
}

func (t *CorrelationID) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Headers().Get(t.header) == ""
}

func (t *CorrelationID) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.Headers().Set(t.header, newHex32())
	return nil
}

// RequestIDPropagation injects an X-Request-Id header if one is not already
// present, and otherwise leaves the incoming value untouched so it
// propagates end to end.
type RequestIDPropagation struct {
	header string
}

func NewRequestIDPropagation() transform.Transform {
	return &RequestIDPropagation{header: "X-Request-Id"}
}

func (t *RequestIDPropagation) Name() string { return "request-id" }

func (t *RequestIDPropagation) Configure(p *transform.ParamBag) error {
	t.header = p.String("header", "X-Request-Id")
	return nil
}

func (t *RequestIDPropagation) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *RequestIDPropagation) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	if mc.Headers().Get(t.header) != "" {
		return nil
	}
	mc.Headers().Set(t.header, newHex32())
	return nil
}

// GatewayMetadata injects a top-level "_gateway" object into the JSON body
// carrying {version, processedAt, requestId}.
type GatewayMetadata struct {
	version string
	field   string
}

func NewGatewayMetadata() transform.Transform {
	return &GatewayMetadata{version: "1.0", field: "_gateway"}
}

func (t *GatewayMetadata) Name() string { return "gateway-metadata" }

func (t *GatewayMetadata) Configure(p *transform.ParamBag) error {
	t.version = p.String("version", "1.0")
	t.field = p.String("field", "_gateway")
	return nil
}

func (t *GatewayMetadata) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Payload().IsJson() && ctx.Payload().HasBody()
}

func (t *GatewayMetadata) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	tree, err := mc.Payload().GetJson()
	if err != nil {
		return err
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	obj[t.field] = map[string]any{
		"version":     t.version,
		"processedAt": time.Now().UTC().Format(time.RFC3339),
		"requestId":   newHex32(),
	}
	return mc.Payload().SetJson(obj)
}
