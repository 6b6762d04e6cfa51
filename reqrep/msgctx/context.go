// Package msgctx provides the typed view of one HTTP message (method, URI,
// headers, payload, side, cancellation) that transforms operate on. A
// Context is created once per HTTP exchange side by the host adapter,
// mutated only by transforms during pipeline execution, and discarded at
// pipeline exit.
package msgctx

import (
	"context"
	"net/url"

	"github.com/agaheman/ReqRepTransformation/reqrep/payload"
)

// Side identifies which leg of one HTTP exchange a Context represents.
type Side int

const (
	SideRequest Side = iota
	SideResponse
)

func (s Side) String() string {
	if s == SideResponse {
		return "response"
	}
	return "request"
}

// Context is the full, unsegregated message context. Transforms never see
// this type directly; the executor dispatches through Buffered() or
// Streaming(), which narrow the payload-access surface at compile time.
type Context struct {
	side    Side
	method  string
	address *url.URL
	headers Headers
	pld     *payload.Payload
	ctx     context.Context
}

// New builds a Context for one side of one exchange.
func New(side Side, method string, address *url.URL, headers Headers, pld *payload.Payload, ctx context.Context) *Context {
	if headers == nil {
		headers = NewMapHeaders()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		side:    side,
		method:  method,
		address: address,
		headers: headers,
		pld:     pld,
		ctx:     ctx,
	}
}

// Side reports whether this is the request or response leg.
func (c *Context) Side() Side { return c.side }

// Method returns the current method. On the response side this is the
// original request method, reported for informational purposes only.
func (c *Context) Method() string { return c.method }

// SetMethod mutates the method. Per the message-context contract, method
// assignment has no effect on the response side.
func (c *Context) SetMethod(method string) {
	if c.side == SideResponse {
		return
	}
	c.method = method
}

// Address returns the current absolute URI.
func (c *Context) Address() *url.URL { return c.address }

// SetAddress mutates the address. On the request side the host propagates
// scheme/host/port/path/query to its outbound request object; on the
// response side the mutation is accepted here but is advisory only — the
// host is not required to act on it.
func (c *Context) SetAddress(u *url.URL) { c.address = u }

// Headers returns the mutable, case-insensitive multi-valued header view.
func (c *Context) Headers() Headers { return c.headers }

// Cancellation returns the context carrying the exchange's abort signal.
// Per-transform deadlines are layered on top of this by the executor.
func (c *Context) Cancellation() context.Context { return c.ctx }

// Payload returns the underlying payload. Exposed for the host adapter
// (e.g. to call Flush after the pipeline finishes); transforms should go
// through Buffered() or Streaming() instead.
func (c *Context) Payload() *payload.Payload { return c.pld }

// Buffered narrows this Context to the view handed to buffered transforms.
func (c *Context) Buffered() *BufferedView { return &BufferedView{c: c} }

// Streaming narrows this Context to the view handed to streaming transforms.
func (c *Context) Streaming() *StreamingView { return &StreamingView{c: c} }

// BufferedView is the context surface a BufferedTransform receives. It may
// touch headers, address, method, and the buffered/JSON body.
type BufferedView struct{ c *Context }

func (v *BufferedView) Side() Side                       { return v.c.side }
func (v *BufferedView) Method() string                   { return v.c.Method() }
func (v *BufferedView) SetMethod(m string)               { v.c.SetMethod(m) }
func (v *BufferedView) Address() *url.URL                { return v.c.Address() }
func (v *BufferedView) SetAddress(u *url.URL)            { v.c.SetAddress(u) }
func (v *BufferedView) Headers() Headers                 { return v.c.Headers() }
func (v *BufferedView) Cancellation() context.Context    { return v.c.Cancellation() }
func (v *BufferedView) Payload() payload.BufferedPayload { return v.c.pld }

// StreamingView is the context surface a StreamingTransform receives. It may
// touch headers and address only; the body-access surface exposes only the
// pipe reader and stream-replace, so a streaming transform cannot even name
// a JSON or buffer method.
type StreamingView struct{ c *Context }

func (v *StreamingView) Side() Side                        { return v.c.side }
func (v *StreamingView) Method() string                    { return v.c.Method() }
func (v *StreamingView) SetMethod(m string)                { v.c.SetMethod(m) }
func (v *StreamingView) Address() *url.URL                 { return v.c.Address() }
func (v *StreamingView) SetAddress(u *url.URL)             { v.c.SetAddress(u) }
func (v *StreamingView) Headers() Headers                  { return v.c.Headers() }
func (v *StreamingView) Cancellation() context.Context     { return v.c.Cancellation() }
func (v *StreamingView) Payload() payload.StreamingPayload { return v.c.pld }
