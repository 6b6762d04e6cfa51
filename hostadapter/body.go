package hostadapter

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/agaheman/ReqRepTransformation/reqrep/payload"
)

// payloadFromRequest builds the request-side Payload over the incoming
// request's body reader, classifying it by its Content-Type header. The
// body is drained lazily by the payload abstraction on first access, not
// here.
func payloadFromRequest(r *http.Request) *payload.Payload {
	var body io.ReadCloser = r.Body
	if body == nil {
		body = http.NoBody
	}
	return payload.NewFromReader(r.Header.Get("Content-Type"), body)
}

// setRequestBody replaces r.Body with b and fixes up Content-Length so the
// downstream handler (typically reverse_proxy) forwards the mutated body
// rather than the original, now-stale one.
func setRequestBody(r *http.Request, b []byte) {
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.ContentLength = int64(len(b))
	if len(b) > 0 {
		r.Header.Set("Content-Length", strconv.Itoa(len(b)))
	} else {
		r.Header.Del("Content-Length")
	}
}

// setRequestStream swaps r.Body for a stream without buffering it, used on
// the streaming path where Content-Length is unknowable until the copy
// completes.
func setRequestStream(r *http.Request, stream io.Reader) {
	if rc, ok := stream.(io.ReadCloser); ok {
		r.Body = rc
	} else {
		r.Body = io.NopCloser(stream)
	}
	r.ContentLength = -1
	r.Header.Del("Content-Length")
}

// payloadFromCapture builds the response-side Payload over the bytes the
// responseCapture sink already buffered in full, per the host adapter
// contract's "swap the sink, then feed the captured bytes into the
// response context's payload" step.
func payloadFromCapture(c *responseCapture) *payload.Payload {
	return payload.NewFromBuffer(c.header.Get("Content-Type"), c.body.Bytes())
}
