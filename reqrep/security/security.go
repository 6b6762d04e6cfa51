// Package security carries the host adapter's defense-in-depth header
// filtering: transforms are trusted to set whatever header they like (that
// is the whole point of the catalog), but a handful of transport-level
// headers must never be set by a transform's Apply call regardless of
// catalog bugs or misconfiguration, because the host, not a transform,
// owns connection semantics and framing.
package security

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// blockedResponseHeaders names headers the host adapter strips from a
// response after the response-side pipeline runs, before the bytes reach
// the wire. These control connection framing and transport behavior that
// only the host may decide, never a transform.
var blockedResponseHeaders = map[string]struct{}{
	"connection":        {},
	"upgrade":           {},
	"transfer-encoding": {},
	"content-length":    {},
	"keep-alive":        {},
}

// FilterResponseHeaders returns a copy of headers with every
// blockedResponseHeaders entry removed, logging a warning for each one
// found. Content-Length is always recomputed by the host adapter after
// Flush, so stripping it here is harmless even when no transform touched
// it.
func FilterResponseHeaders(headers map[string][]string, log *zap.Logger, requestPath string) map[string][]string {
	if log == nil {
		log = zap.NewNop()
	}
	filtered := make(map[string][]string, len(headers))
	for k, vs := range headers {
		if _, blocked := blockedResponseHeaders[strings.ToLower(k)]; blocked {
			log.Warn("hostadapter: stripped transport-level header from transformed response",
				zap.String("header", k),
				zap.String("path", requestPath),
			)
			continue
		}
		filtered[k] = vs
	}
	return filtered
}

// ValidateURLScheme reports an error if rawURL does not parse or carries a
// scheme other than http/https; a URL with no scheme at all is accepted. It
// is used to validate operator-supplied rewrite targets (HostRewrite's
// scheme-qualified target host) before they are accepted at configuration
// time rather than failing confusingly mid request.
func ValidateURLScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return &SchemeError{Scheme: u.Scheme}
	}
	return nil
}

// SchemeError reports a rejected, non-http(s) URL scheme.
type SchemeError struct {
	Scheme string
}

func (e *SchemeError) Error() string {
	return "security: disallowed URL scheme " + e.Scheme
}
