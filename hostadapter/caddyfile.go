package hostadapter

import (
	"strings"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

func init() {
	httpcaddyfile.RegisterHandlerDirective("reqrep_transform", parseCaddyfile)
}

// parseCaddyfile parses the reqrep_transform directive from a Caddyfile.
func parseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	m := new(ReqRepTransform)
	if err := m.UnmarshalCaddyfile(h.Dispenser); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
//
//	reqrep_transform {
//	    route_config_path     routes.json
//	    default_timeout       5s
//	    default_failure_mode  log-and-skip
//	    redacted_header_keys  Authorization Cookie X-Api-Key
//	    redacted_query_keys   access_token api_key
//	    enable_metrics        on
//	}
func (m *ReqRepTransform) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	if !d.Next() {
		return d.ArgErr()
	}

	for d.NextBlock(0) {
		switch d.Val() {
		case "route_config_path":
			if !d.NextArg() {
				return d.ArgErr()
			}
			m.RouteConfigPath = d.Val()
		case "default_timeout":
			if !d.NextArg() {
				return d.ArgErr()
			}
			dur, err := caddy.ParseDuration(d.Val())
			if err != nil {
				return d.Errf("invalid default_timeout: %v", err)
			}
			m.DefaultTimeout = caddy.Duration(dur)
		case "default_failure_mode":
			if !d.NextArg() {
				return d.ArgErr()
			}
			m.DefaultFailureMode = fromKebab(d.Val())
		case "redacted_header_keys":
			args := d.RemainingArgs()
			if len(args) == 0 {
				return d.ArgErr()
			}
			m.RedactedHeaderKeys = append(m.RedactedHeaderKeys, args...)
		case "redacted_query_keys":
			args := d.RemainingArgs()
			if len(args) == 0 {
				return d.ArgErr()
			}
			m.RedactedQueryKeys = append(m.RedactedQueryKeys, args...)
		case "enable_metrics":
			if !d.NextArg() {
				return d.ArgErr()
			}
			val := strings.ToLower(d.Val())
			m.EnableMetrics = val == "true" || val == "on" || val == "yes" || val == "1"
		default:
			return d.Errf("unknown option: %s", d.Val())
		}
	}
	return nil
}

// fromKebab accepts the kebab-case spellings a Caddyfile author would
// naturally type (stop-pipeline, continue, log-and-skip) and produces the
// PascalCase spelling used by the JSON config; bindConfig maps it back to
// the kebab-case form plan.ParseFailureMode expects, so either style works
// regardless of entry point (JSON config vs Caddyfile).
func fromKebab(s string) string {
	switch strings.ToLower(s) {
	case "stop-pipeline":
		return "StopPipeline"
	case "continue":
		return "Continue"
	case "log-and-skip":
		return "LogAndSkip"
	default:
		return s
	}
}
