package hostadapter

import (
	"net/http"
	"net/textproto"
	"sort"
)

// httpHeaders adapts a net/http.Header into msgctx.Headers: case-insensitive,
// multi-valued, and filtering out empty entries the way the host adapter
// contract requires. This is the host's IMessageHeaders implementation over
// its native header container.
type httpHeaders struct {
	h http.Header
}

func newHTTPHeaders(h http.Header) *httpHeaders {
	if h == nil {
		h = make(http.Header)
	}
	return &httpHeaders{h: h}
}

func (a *httpHeaders) Get(key string) string { return a.h.Get(key) }

func (a *httpHeaders) Values(key string) []string {
	vs := a.h.Values(key)
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (a *httpHeaders) Set(key, value string) {
	if value == "" {
		a.h.Del(key)
		return
	}
	a.h.Set(key, value)
}

func (a *httpHeaders) Add(key, value string) {
	if value == "" {
		return
	}
	a.h.Add(key, value)
}

func (a *httpHeaders) Del(key string) { a.h.Del(key) }

func (a *httpHeaders) Keys() []string {
	keys := make([]string, 0, len(a.h))
	for k := range a.h {
		keys = append(keys, textproto.CanonicalMIMEHeaderKey(k))
	}
	sort.Strings(keys)
	return keys
}
