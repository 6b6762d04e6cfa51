package builtin

import (
	"context"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// NoopStreamingTransform passes a streaming body through untouched. It
// exists mainly as a minimal, always-safe member of the streaming family
// for tests and for routes that want a streaming transform present purely
// for tracing visibility, the streaming-side analogue of JWTPassthrough.
type NoopStreamingTransform struct{}

func NewNoopStreamingTransform() transform.Transform { return &NoopStreamingTransform{} }

func (t *NoopStreamingTransform) Name() string { return "streaming-noop" }

func (t *NoopStreamingTransform) Configure(p *transform.ParamBag) error { return nil }

func (t *NoopStreamingTransform) ShouldApply(ctx *msgctx.StreamingView) bool { return true }

func (t *NoopStreamingTransform) Apply(ctx context.Context, mc *msgctx.StreamingView) error {
	return nil
}

// StreamHeaderRewrite renames a header on a streaming message. It only
// ever touches headers and address; its Payload() accessor is typed as
// payload.StreamingPayload, which has no JSON or buffer method to call.
type StreamHeaderRewrite struct {
	from, to string
}

func NewStreamHeaderRewrite() transform.Transform { return &StreamHeaderRewrite{} }

func (t *StreamHeaderRewrite) Name() string { return "stream-header-rewrite" }

func (t *StreamHeaderRewrite) Configure(p *transform.ParamBag) error {
	from, err := p.RequiredString("from")
	if err != nil {
		return err
	}
	to, err := p.RequiredString("to")
	if err != nil {
		return err
	}
	t.from, t.to = from, to
	return nil
}

func (t *StreamHeaderRewrite) ShouldApply(ctx *msgctx.StreamingView) bool {
	return len(ctx.Headers().Values(t.from)) > 0
}

func (t *StreamHeaderRewrite) Apply(ctx context.Context, mc *msgctx.StreamingView) error {
	values := append([]string(nil), mc.Headers().Values(t.from)...)
	mc.Headers().Del(t.from)
	for _, v := range values {
		mc.Headers().Add(t.to, v)
	}
	return nil
}
