package msgctx

import (
	"net/textproto"
	"sort"
)

// Headers is a case-insensitive, multi-valued header view. The host supplies
// a concrete implementation over its native container (see hostadapter);
// this package also ships a plain in-memory implementation for tests and
// for hosts with no native multi-map of their own.
type Headers interface {
	Get(key string) string
	Values(key string) []string
	Set(key, value string)
	Add(key, value string)
	Del(key string)
	Keys() []string
}

// MapHeaders is a minimal Headers implementation backed by a canonicalized
// map. NewMapHeadersFrom drops empty values; Set and Add store the value
// they are given, empty or not.
type MapHeaders struct {
	m map[string][]string
}

// NewMapHeaders builds an empty MapHeaders.
func NewMapHeaders() *MapHeaders {
	return &MapHeaders{m: make(map[string][]string)}
}

// NewMapHeadersFrom builds a MapHeaders from a plain map, canonicalizing
// keys and dropping empty entries.
func NewMapHeadersFrom(src map[string][]string) *MapHeaders {
	h := NewMapHeaders()
	for k, vs := range src {
		for _, v := range vs {
			if v == "" {
				continue
			}
			h.Add(k, v)
		}
	}
	return h
}

func canonical(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

func (h *MapHeaders) Get(key string) string {
	vs := h.m[canonical(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (h *MapHeaders) Values(key string) []string {
	return h.m[canonical(key)]
}

func (h *MapHeaders) Set(key, value string) {
	h.m[canonical(key)] = []string{value}
}

func (h *MapHeaders) Add(key, value string) {
	k := canonical(key)
	h.m[k] = append(h.m[k], value)
}

func (h *MapHeaders) Del(key string) {
	delete(h.m, canonical(key))
}

func (h *MapHeaders) Keys() []string {
	keys := make([]string, 0, len(h.m))
	for k := range h.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
