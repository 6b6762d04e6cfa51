package hostadapter

import (
	"bytes"
	"net/http"
	"strconv"
)

// responseCapture is the buffered sink swapped in for the real
// http.ResponseWriter while the downstream handler runs, so the response
// body is available to the response-side pipeline before anything reaches
// the client. It is the host adapter's only subtle resource-discipline
// point: the caller must restore the original writer on every exit path,
// including a panic unwinding through the forwarder.
type responseCapture struct {
	header      http.Header
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func newResponseCapture() *responseCapture {
	return &responseCapture{header: make(http.Header), statusCode: http.StatusOK}
}

func (c *responseCapture) Header() http.Header { return c.header }

func (c *responseCapture) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.body.Write(b)
}

func (c *responseCapture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.statusCode = status
	c.wroteHeader = true
}

// flushTo writes the capture's recorded status, headers, and body to w,
// adjusting Content-Length if body differs in size from what was
// originally captured.
func flushTo(w http.ResponseWriter, header http.Header, statusCode int, body []byte) {
	dst := w.Header()
	for k, vs := range header {
		dst[k] = vs
	}
	dst.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(statusCode)
	w.Write(body)
}
