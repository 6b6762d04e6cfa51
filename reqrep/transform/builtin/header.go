// Package builtin implements the concrete transform catalog enumerated by
// the design: header edits, URI rewrites, JSON-body mutations, JWT claim
// projection, and the streaming passthrough family. Every type here
// satisfies either transform.BufferedTransform or
// transform.StreamingTransform.
package builtin

import (
	"context"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// DefaultInternalResponseHeaders is the default list removed by
// RemoveInternalResponseHeaders when no override is configured.
var DefaultInternalResponseHeaders = []string{
	"X-Internal-Token",
	"X-Backend-Version",
	"X-Upstream-Address",
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// AddHeader sets a header to a fixed value, without overwriting an existing
// value unless overwrite is configured.
type AddHeader struct {
	header    string
	value     string
	overwrite bool
}

func NewAddHeader() transform.Transform { return &AddHeader{} }

func (t *AddHeader) Name() string { return "add-header" }

func (t *AddHeader) Configure(p *transform.ParamBag) error {
	name, err := p.RequiredString("name")
	if err != nil {
		return err
	}
	value, err := p.RequiredString("value")
	if err != nil {
		return err
	}
	t.header, t.value, t.overwrite = name, value, p.Bool("overwrite", false)
	return nil
}

func (t *AddHeader) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *AddHeader) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	if !t.overwrite && mc.Headers().Get(t.header) != "" {
		return nil
	}
	mc.Headers().Set(t.header, t.value)
	return nil
}

// RemoveHeader deletes a header by name.
type RemoveHeader struct {
	header string
}

func NewRemoveHeader() transform.Transform { return &RemoveHeader{} }

func (t *RemoveHeader) Name() string { return "remove-header" }

func (t *RemoveHeader) Configure(p *transform.ParamBag) error {
	name, err := p.RequiredString("name")
	if err != nil {
		return err
	}
	t.header = name
	return nil
}

func (t *RemoveHeader) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Headers().Get(t.header) != ""
}

func (t *RemoveHeader) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.Headers().Del(t.header)
	return nil
}

// RenameHeader moves a header's values to a new name, leaving the old name
// absent.
type RenameHeader struct {
	from, to string
}

func NewRenameHeader() transform.Transform { return &RenameHeader{} }

func (t *RenameHeader) Name() string { return "rename-header" }

func (t *RenameHeader) Configure(p *transform.ParamBag) error {
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

func (t *RenameHeader) ShouldApply(ctx *msgctx.BufferedView) bool {
	return len(ctx.Headers().Values(t.from)) > 0
}

func (t *RenameHeader) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	values := append([]string(nil), mc.Headers().Values(t.from)...)
	mc.Headers().Del(t.from)
	for _, v := range values {
		mc.Headers().Add(t.to, v)
	}
	return nil
}

// AppendHeader adds a value to a header without disturbing any existing
// values.
type AppendHeader struct {
	header string
	value  string
}

func NewAppendHeader() transform.Transform { return &AppendHeader{} }

func (t *AppendHeader) Name() string { return "append-header" }

func (t *AppendHeader) Configure(p *transform.ParamBag) error {
	name, err := p.RequiredString("name")
	if err != nil {
		return err
	}
	value, err := p.RequiredString("value")
	if err != nil {
		return err
	}
	t.header, t.value = name, value
	return nil
}

func (t *AppendHeader) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *AppendHeader) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.Headers().Add(t.header, t.value)
	return nil
}

// StripAuthorization removes the Authorization header entirely.
type StripAuthorization struct{}

func NewStripAuthorization() transform.Transform { return &StripAuthorization{} }

func (t *StripAuthorization) Name() string { return "strip-authorization" }

func (t *StripAuthorization) Configure(p *transform.ParamBag) error { return nil }

func (t *StripAuthorization) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Headers().Get("Authorization") != ""
}

func (t *StripAuthorization) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.Headers().Del("Authorization")
	return nil
}

// RemoveInternalResponseHeaders strips a configured (or default) list of
// headers that should never reach the client, e.g. backend version or
// internal routing hints leaked in the backend's response.
type RemoveInternalResponseHeaders struct {
	headers []string
}

func NewRemoveInternalResponseHeaders() transform.Transform {
	return &RemoveInternalResponseHeaders{}
}

func (t *RemoveInternalResponseHeaders) Name() string { return "remove-internal-response-headers" }

func (t *RemoveInternalResponseHeaders) Configure(p *transform.ParamBag) error {
	if list := p.List("headers"); len(list) > 0 {
		t.headers = list
	} else {
		t.headers = DefaultInternalResponseHeaders
	}
	return nil
}

func (t *RemoveInternalResponseHeaders) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *RemoveInternalResponseHeaders) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	for _, h := range t.headers {
		mc.Headers().Del(h)
	}
	return nil
}

// GatewayResponseTag stamps gateway identification headers onto the
// response.
type GatewayResponseTag struct {
	version     string
	processedBy string
}

func NewGatewayResponseTag() transform.Transform { return &GatewayResponseTag{} }

func (t *GatewayResponseTag) Name() string { return "gateway-response-tag" }

func (t *GatewayResponseTag) Configure(p *transform.ParamBag) error {
	t.version = p.String("version", "1.0")
	t.processedBy = p.String("processed_by", "reqrep")
	return nil
}

func (t *GatewayResponseTag) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *GatewayResponseTag) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.Headers().Set("X-Gateway-Version", t.version)
	mc.Headers().Set("X-Processed-By", t.processedBy)
	return nil
}

