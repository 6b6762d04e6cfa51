package builtin

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/security"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// regexMatchTimeout bounds how long PathRegexRewrite will wait for a match
// before giving up and leaving the path untouched.
const regexMatchTimeout = 100 * time.Millisecond

// PathPrefixRewrite replaces a literal path prefix with another.
type PathPrefixRewrite struct {
	from, to string
}

func NewPathPrefixRewrite() transform.Transform { return &PathPrefixRewrite{} }

func (t *PathPrefixRewrite) Name() string { return "path-prefix-rewrite" }

func (t *PathPrefixRewrite) Configure(p *transform.ParamBag) error {
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

func (t *PathPrefixRewrite) ShouldApply(ctx *msgctx.BufferedView) bool {
	return strings.HasPrefix(ctx.Address().Path, t.from)
}

func (t *PathPrefixRewrite) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	u := *mc.Address()
	u.Path = t.to + strings.TrimPrefix(u.Path, t.from)
	mc.SetAddress(&u)
	return nil
}

// PathRegexRewrite rewrites the path using a compiled regular expression
// and a replacement template, compiled once at Configure time. Matching is
// bounded to regexMatchTimeout; on timeout the path is left untouched.
type PathRegexRewrite struct {
	re          *regexp.Regexp
	replacement string
}

func NewPathRegexRewrite() transform.Transform { return &PathRegexRewrite{} }

func (t *PathRegexRewrite) Name() string { return "path-regex-rewrite" }

func (t *PathRegexRewrite) Configure(p *transform.ParamBag) error {
	pattern, err := p.RequiredString("pattern")
	if err != nil {
		return err
	}
	replacement, err := p.RequiredString("replacement")
	if err != nil {
		return err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	t.re, t.replacement = re, replacement
	return nil
}

func (t *PathRegexRewrite) ShouldApply(ctx *msgctx.BufferedView) bool {
	matched, ok := matchWithTimeout(t.re, ctx.Address().Path, regexMatchTimeout)
	return ok && matched
}

func (t *PathRegexRewrite) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	path := mc.Address().Path
	result := make(chan string, 1)
	go func() { result <- t.re.ReplaceAllString(path, t.replacement) }()

	select {
	case replaced := <-result:
		u := *mc.Address()
		u.Path = replaced
		mc.SetAddress(&u)
		return nil
	case <-time.After(regexMatchTimeout):
		return nil
	}
}

// matchWithTimeout runs re.MatchString on its own goroutine and reports
// whether it completed within timeout; ok is false on timeout.
func matchWithTimeout(re *regexp.Regexp, s string, timeout time.Duration) (matched bool, ok bool) {
	result := make(chan bool, 1)
	go func() { result <- re.MatchString(s) }()

	select {
	case m := <-result:
		return m, true
	case <-time.After(timeout):
		return false, false
	}
}

// AddQueryParam adds (or overwrites) a query string parameter.
type AddQueryParam struct {
	key, value string
}

func NewAddQueryParam() transform.Transform { return &AddQueryParam{} }

func (t *AddQueryParam) Name() string { return "add-query-param" }

func (t *AddQueryParam) Configure(p *transform.ParamBag) error {
	key, err := p.RequiredString("key")
	if err != nil {
		return err
	}
	t.key = key
	t.value = p.String("value", "")
	return nil
}

func (t *AddQueryParam) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *AddQueryParam) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	u := *mc.Address()
	q := u.Query()
	q.Set(t.key, t.value)
	u.RawQuery = q.Encode()
	mc.SetAddress(&u)
	return nil
}

// RemoveQueryParam deletes a query string parameter.
type RemoveQueryParam struct {
	key string
}

func NewRemoveQueryParam() transform.Transform { return &RemoveQueryParam{} }

func (t *RemoveQueryParam) Name() string { return "remove-query-param" }

func (t *RemoveQueryParam) Configure(p *transform.ParamBag) error {
	key, err := p.RequiredString("key")
	if err != nil {
		return err
	}
	t.key = key
	return nil
}

func (t *RemoveQueryParam) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Address().Query().Has(t.key)
}

func (t *RemoveQueryParam) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	u := *mc.Address()
	q := u.Query()
	q.Del(t.key)
	u.RawQuery = q.Encode()
	mc.SetAddress(&u)
	return nil
}

// HostRewrite replaces the address host (and optional port). The target may
// be a bare "host:port" or a scheme-qualified "https://host:port"; a
// non-http(s) scheme is rejected at Configure time.
type HostRewrite struct {
	scheme string
	host   string
}

func NewHostRewrite() transform.Transform { return &HostRewrite{} }

func (t *HostRewrite) Name() string { return "host-rewrite" }

func (t *HostRewrite) Configure(p *transform.ParamBag) error {
	host, err := p.RequiredString("host")
	if err != nil {
		return err
	}
	if strings.Contains(host, "://") {
		if err := security.ValidateURLScheme(host); err != nil {
			return err
		}
		u, err := url.Parse(host)
		if err != nil {
			return err
		}
		t.scheme, t.host = u.Scheme, u.Host
		return nil
	}
	t.host = host
	return nil
}

func (t *HostRewrite) ShouldApply(ctx *msgctx.BufferedView) bool { return true }

func (t *HostRewrite) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	u := *mc.Address()
	u.Host = t.host
	if t.scheme != "" {
		u.Scheme = t.scheme
	}
	mc.SetAddress(&u)
	return nil
}

// MethodOverride replaces the HTTP method, optionally only when the
// current method matches a configured value.
type MethodOverride struct {
	to   string
	only string
}

func NewMethodOverride() transform.Transform { return &MethodOverride{} }

func (t *MethodOverride) Name() string { return "method-override" }

func (t *MethodOverride) Configure(p *transform.ParamBag) error {
	to, err := p.RequiredString("to")
	if err != nil {
		return err
	}
	t.to = strings.ToUpper(to)
	t.only = strings.ToUpper(p.String("only_if", ""))
	return nil
}

func (t *MethodOverride) ShouldApply(ctx *msgctx.BufferedView) bool {
	if t.only == "" {
		return true
	}
	return strings.ToUpper(ctx.Method()) == t.only
}

func (t *MethodOverride) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	mc.SetMethod(t.to)
	return nil
}
