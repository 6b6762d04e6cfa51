// Package redact masks sensitive header and query values before they reach
// a log line or a trace span attribute.
package redact

import (
	"net/url"
	"strings"
)

// Masked is substituted for any value whose key appears in the redacted
// set.
const Masked = "***REDACTED***"

// DefaultHeaderKeys is the default set of header names masked before
// logging or tracing.
var DefaultHeaderKeys = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Api-Key",
	"X-Client-Secret",
	"X-Api-Secret",
	"X-Internal-Token",
}

// DefaultQueryKeys is the default set of query parameter names masked
// before logging or tracing.
var DefaultQueryKeys = []string{
	"access_token",
	"api_key",
	"token",
	"secret",
}

// Redactor masks header and query values by key, case-insensitively. The
// zero value is not usable; construct with New.
type Redactor struct {
	headerKeys map[string]struct{}
	queryKeys  map[string]struct{}
}

// New builds a Redactor over the given key sets. A nil slice for either
// argument falls back to that set's package default.
func New(headerKeys, queryKeys []string) *Redactor {
	if headerKeys == nil {
		headerKeys = DefaultHeaderKeys
	}
	if queryKeys == nil {
		queryKeys = DefaultQueryKeys
	}
	return &Redactor{
		headerKeys: toSet(headerKeys),
		queryKeys:  toSet(queryKeys),
	}
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return set
}

// Header returns value unless key is in the redacted header-key set, in
// which case it returns Masked.
func (r *Redactor) Header(key, value string) string {
	if _, redact := r.headerKeys[strings.ToLower(key)]; redact {
		return Masked
	}
	return value
}

// Query returns value unless key is in the redacted query-key set, in
// which case it returns Masked.
func (r *Redactor) Query(key, value string) string {
	if _, redact := r.queryKeys[strings.ToLower(key)]; redact {
		return Masked
	}
	return value
}

// URL renders u as a string with every redacted query value masked, for use
// as a log field or span attribute. u itself is never mutated.
func (r *Redactor) URL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	masked := false
	for k, vs := range q {
		if _, redact := r.queryKeys[strings.ToLower(k)]; !redact {
			continue
		}
		for i := range vs {
			vs[i] = Masked
		}
		q[k] = vs
		masked = true
	}
	if !masked {
		return u.String()
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
