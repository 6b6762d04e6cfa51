// Package hostadapter is the Caddy v2 HTTP module that fulfills the host
// adapter contract: building a Message Context per side, swapping the
// response sink for a buffered capture before forwarding, and writing the
// pipeline's final bytes back to the wire. It never inspects what a
// transform does; it only drives reqrep's pipeline around the Caddy
// request lifecycle.
package hostadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/agaheman/ReqRepTransformation/reqrep/config"
	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/pipeline"
	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
	"github.com/agaheman/ReqRepTransformation/reqrep/redact"
	"github.com/agaheman/ReqRepTransformation/reqrep/resolver"
	"github.com/agaheman/ReqRepTransformation/reqrep/security"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform/builtin"
)

func init() {
	caddy.RegisterModule(ReqRepTransform{})
}

// ReqRepTransform is the Caddy HTTP handler module driving the
// request/response transformation pipeline between the client and the
// next handler in the chain (typically a reverse_proxy).
type ReqRepTransform struct {
	RouteConfigPath    string         `json:"route_config_path,omitempty"`
	DefaultTimeout     caddy.Duration `json:"default_timeout,omitempty"`
	DefaultFailureMode string         `json:"default_failure_mode,omitempty"`
	RedactedHeaderKeys []string       `json:"redacted_header_keys,omitempty"`
	RedactedQueryKeys  []string       `json:"redacted_query_keys,omitempty"`
	EnableMetrics      bool           `json:"enable_metrics,omitempty"`

	logger   *zap.Logger
	executor *pipeline.Executor
	provider resolver.DetailProvider
}

// CaddyModule returns the Caddy module information.
func (ReqRepTransform) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.reqrep_transform",
		New: func() caddy.Module { return new(ReqRepTransform) },
	}
}

// Provision sets up the catalog, route provider, and executor.
func (m *ReqRepTransform) Provision(ctx caddy.Context) error {
	m.logger = ctx.Logger(m)

	bound, err := m.bindConfig()
	if err != nil {
		return err
	}

	catalog := transform.NewCatalog()
	builtin.Register(catalog)

	var registerer prometheus.Registerer
	if m.EnableMetrics {
		registerer = prometheus.DefaultRegisterer
	}

	builder := resolver.NewBuilder(catalog, m.logger)
	source := newFileRouteSource(m.RouteConfigPath)
	m.provider = resolver.NewStaticProvider(source, builder, nil, m.logger)
	m.executor = pipeline.NewExecutor(bound.Global,
		pipeline.WithLogger(m.logger),
		pipeline.WithMetrics(registerer),
		pipeline.WithRedactor(bound.Redactor),
	)

	return nil
}

func (m *ReqRepTransform) bindConfig() (config.Bound, error) {
	bound := config.Default()
	if m.DefaultTimeout > 0 {
		bound.Global.DefaultTimeout = time.Duration(m.DefaultTimeout)
	}
	if m.DefaultFailureMode != "" {
		mode, err := plan.ParseFailureMode(toKebab(m.DefaultFailureMode))
		if err != nil {
			return config.Bound{}, fmt.Errorf("hostadapter: %w", err)
		}
		bound.Global.DefaultFailureMode = mode
	}
	if len(m.RedactedHeaderKeys) > 0 {
		bound.Global.RedactedHeaderKeys = m.RedactedHeaderKeys
	}
	if len(m.RedactedQueryKeys) > 0 {
		bound.Global.RedactedQueryKeys = m.RedactedQueryKeys
	}
	bound.Redactor = redact.New(bound.Global.RedactedHeaderKeys, bound.Global.RedactedQueryKeys)
	return bound, nil
}

// Validate checks that required fields are set.
func (m *ReqRepTransform) Validate() error {
	if m.RouteConfigPath == "" {
		return fmt.Errorf("route_config_path is required")
	}
	return nil
}

// ServeHTTP drives Resolve → Execute-Request → forward → Execute-Response
// → flush. A StopPipeline failure on the request side aborts forwarding with
// a 502 gateway error; on the response side the original captured response
// is served instead (see gatewayError).
func (m *ReqRepTransform) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	detail, err := m.provider.Resolve(r.Method, r.URL.Path)
	if err != nil {
		// Per the detail-provider failure policy: log and pass through.
		m.logger.Warn("reqrep: plan resolution failed, passing through", zap.Error(err))
		return next.ServeHTTP(w, r)
	}

	reqPayload := payloadFromRequest(r)
	reqCtx := msgctx.New(msgctx.SideRequest, r.Method, absoluteURL(r), newHTTPHeaders(r.Header), reqPayload, r.Context())

	if err := m.executor.RunRequest(r.Context(), reqCtx, detail); err != nil {
		return m.gatewayError(w, err, msgctx.SideRequest, nil)
	}

	applyRequestMutations(r, reqCtx)
	if reqPayload.IsStreaming() {
		// A streaming body is never buffered here: the pipe reader (or a
		// transform's replacement stream) flows straight through to the
		// forwarder. An untouched stream stays exactly as the client sent
		// it, original Content-Length included.
		if stream, err := reqPayload.FlushStream(); err == nil && stream != io.Reader(r.Body) {
			setRequestStream(r, stream)
		}
	} else if b, err := reqPayload.Flush(); err != nil {
		m.logger.Warn("reqrep: failed to flush request payload, forwarding original body", zap.Error(err))
	} else {
		setRequestBody(r, b)
	}

	capture := newResponseCapture()
	forwardErr := next.ServeHTTP(capture, r)
	if forwardErr != nil {
		return forwardErr
	}

	respPayload := payloadFromCapture(capture)
	respCtx := msgctx.New(msgctx.SideResponse, r.Method, r.URL, newHTTPHeaders(capture.header), respPayload, r.Context())

	if err := m.executor.RunResponse(r.Context(), respCtx, detail); err != nil {
		return m.gatewayError(w, err, msgctx.SideResponse, capture)
	}

	finalBody, err := respPayload.Flush()
	if err != nil {
		return fmt.Errorf("reqrep: failed to flush response payload: %w", err)
	}
	filtered := security.FilterResponseHeaders(capture.header, m.logger, r.URL.Path)
	flushTo(w, filtered, capture.statusCode, finalBody)
	return nil
}

// gatewayError emits the 502 documented in the external-interfaces
// contract. On a response-side failure it falls back to serving the
// original captured response, status and headers included, per the host
// adapter's discretion.
func (m *ReqRepTransform) gatewayError(w http.ResponseWriter, err error, side msgctx.Side, fallback *responseCapture) error {
	var failure *pipeline.TransformationFailure
	if !errors.As(err, &failure) {
		return err
	}

	if side == msgctx.SideResponse && fallback != nil {
		filtered := security.FilterResponseHeaders(fallback.header, m.logger, "")
		flushTo(w, filtered, fallback.statusCode, fallback.body.Bytes())
		return nil
	}

	http.Error(w, fmt.Sprintf("Gateway error: %s transformation failed in '%s'.", side, failure.Name), http.StatusBadGateway)
	return nil
}

func toKebab(s string) string {
	switch s {
	case "StopPipeline":
		return "stop-pipeline"
	case "Continue":
		return "continue"
	case "LogAndSkip":
		return "log-and-skip"
	default:
		return s
	}
}

// absoluteURL rebuilds the request's absolute URI: server-side requests
// carry only path and query in r.URL, with the authority in r.Host.
func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	return &u
}

func applyRequestMutations(r *http.Request, ctx *msgctx.Context) {
	r.Method = ctx.Method()
	if addr := ctx.Address(); addr != nil {
		newURL := *addr
		r.URL = &newURL
		if addr.Host != "" {
			r.Host = addr.Host
		}
	}
}
