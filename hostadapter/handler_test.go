package hostadapter

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/agaheman/ReqRepTransformation/reqrep/config"
	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/pipeline"
	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
	"github.com/agaheman/ReqRepTransformation/reqrep/resolver"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform/builtin"
)

// memorySource is a resolver.RouteSource over an in-memory row slice,
// standing in for a database table the way hostadapter's fileRouteSource
// stands in for a JSON file, without touching the filesystem in a test.
type memorySource struct {
	rows []resolver.RouteEntry
}

func (s *memorySource) Routes() ([]resolver.RouteEntry, error) { return s.rows, nil }

func newTestModule(t *testing.T, rows []resolver.RouteEntry, global pipeline.GlobalOptions) *ReqRepTransform {
	t.Helper()
	catalog := transform.NewCatalog()
	builtin.Register(catalog)
	builder := resolver.NewBuilder(catalog, zap.NewNop())
	provider := resolver.NewStaticProvider(&memorySource{rows: rows}, builder, nil, zap.NewNop())
	return &ReqRepTransform{
		logger:   zap.NewNop(),
		executor: pipeline.NewExecutor(global, pipeline.WithLogger(zap.NewNop())),
		provider: provider,
	}
}

// TestServeHTTPAppliesRequestPipelineAndGatewayMetadata drives a full
// request-side plan through one exchange: correlation id, request id, JWT
// claim projection, and gateway metadata all land in order.
func TestServeHTTPAppliesRequestPipelineAndGatewayMetadata(t *testing.T) {
	const token = "Bearer eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MTIzIiwiZW1haWwiOiJhQGIifQ.sig"
	rows := []resolver.RouteEntry{
		{Method: "POST", Path: "/api/orders", TransformerKey: "correlation-id", Side: msgctx.SideRequest, Order: 10},
		{Method: "POST", Path: "/api/orders", TransformerKey: "request-id", Side: msgctx.SideRequest, Order: 20},
		{Method: "POST", Path: "/api/orders", TransformerKey: "jwt-forward", Side: msgctx.SideRequest, Order: 30},
		{Method: "POST", Path: "/api/orders", TransformerKey: "jwt-claims-extract", Side: msgctx.SideRequest, Order: 40,
			ParamsJSON: `{"claim_map":"sub=X-User-Id|email=X-User-Email"}`},
		{Method: "POST", Path: "/api/orders", TransformerKey: "gateway-metadata", Side: msgctx.SideRequest, Order: 50},
	}
	m := newTestModule(t, rows, config.Default().Global)

	req := httptest.NewRequest(http.MethodPost, "http://gw.local/api/orders", bytes.NewReader([]byte(`{"order":"ABC"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	var captured *http.Request
	next := caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
		return nil
	})

	rec := httptest.NewRecorder()
	if err := m.ServeHTTP(rec, req, next); err != nil {
		t.Fatalf("ServeHTTP: %v", err)
	}

	if captured == nil {
		t.Fatal("next handler was never invoked")
	}
	if len(captured.Header.Get("X-Correlation-Id")) != 32 {
		t.Errorf("X-Correlation-Id = %q, want 32 hex chars", captured.Header.Get("X-Correlation-Id"))
	}
	if len(captured.Header.Get("X-Request-Id")) != 32 {
		t.Errorf("X-Request-Id = %q, want 32 hex chars", captured.Header.Get("X-Request-Id"))
	}
	if got := captured.Header.Get("X-User-Id"); got != "u123" {
		t.Errorf("X-User-Id = %q, want u123", got)
	}
	if got := captured.Header.Get("X-User-Email"); got != "a@b" {
		t.Errorf("X-User-Email = %q, want a@b", got)
	}
	if got := captured.Header.Get("Authorization"); got != token {
		t.Errorf("Authorization = %q, want retained unchanged", got)
	}

	body, err := io.ReadAll(captured.Body)
	if err != nil {
		t.Fatalf("reading forwarded body: %v", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(body, &tree); err != nil {
		t.Fatalf("forwarded body is not valid JSON: %v (%s)", err, body)
	}
	gw, ok := tree["_gateway"].(map[string]any)
	if !ok {
		t.Fatalf("_gateway missing from forwarded body: %v", tree)
	}
	for _, key := range []string{"version", "processedAt", "requestId"} {
		if _, ok := gw[key]; !ok {
			t.Errorf("_gateway missing field %q", key)
		}
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestServeHTTPDefaultStopPipelineFailure: a request-side transform that
// fails under StopPipeline, taken from the global default because the plan
// carries no explicit failure mode, aborts forwarding and the host writes a
// 502 naming the failing transform. json-field-add against an unparseable
// body surfaces a real Apply failure rather than a synthetic test double.
func TestServeHTTPDefaultStopPipelineFailure(t *testing.T) {
	rows := []resolver.RouteEntry{
		{Method: "*", Path: "/api/admin", TransformerKey: "json-field-add", Side: msgctx.SideRequest, Order: 10,
			ParamsJSON: `{"field":"x","value":"y"}`},
	}
	global := config.Default().Global
	global.DefaultFailureMode = plan.StopPipeline
	m := newTestModule(t, rows, global)

	// The body claims to be JSON but isn't: json-field-add's Apply fails
	// on the first parse, which is a real transform failure, not a skip.
	req := httptest.NewRequest(http.MethodPost, "http://gw.local/api/admin", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	var nextCalled bool
	next := caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
		return nil
	})

	rec := httptest.NewRecorder()
	if err := m.ServeHTTP(rec, req, next); err != nil {
		t.Fatalf("ServeHTTP: %v", err)
	}
	if nextCalled {
		t.Error("next handler should not be invoked after a StopPipeline request-side failure")
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if got := rec.Body.String(); !bytes.Contains(rec.Body.Bytes(), []byte("json-field-add")) {
		t.Fatalf("body = %q, expected a gateway-error body naming the failing transform", got)
	}
}

// TestServeHTTPLogAndSkipContinuesAfterFailure: a failing first transform
// under LogAndSkip does not block the second from running, and the
// exchange still reaches the backend.
func TestServeHTTPLogAndSkipContinuesAfterFailure(t *testing.T) {
	rows := []resolver.RouteEntry{
		{Method: "*", Path: "/api/admin", TransformerKey: "json-field-add", Side: msgctx.SideRequest, Order: 10,
			ParamsJSON: `{"field":"x","value":"y"}`},
		{Method: "*", Path: "/api/admin", TransformerKey: "add-header", Side: msgctx.SideRequest, Order: 20,
			ParamsJSON: `{"name":"X-Internal-Key","value":"secret"}`},
	}
	global := config.Default().Global
	global.DefaultFailureMode = plan.LogAndSkip
	m := newTestModule(t, rows, global)

	req := httptest.NewRequest(http.MethodPost, "http://gw.local/api/admin", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	var captured *http.Request
	next := caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		captured = r
		w.WriteHeader(http.StatusOK)
		return nil
	})

	rec := httptest.NewRecorder()
	if err := m.ServeHTTP(rec, req, next); err != nil {
		t.Fatalf("ServeHTTP: %v", err)
	}
	if captured == nil {
		t.Fatal("next handler should still run: LogAndSkip never aborts the exchange")
	}
	if got := captured.Header.Get("X-Internal-Key"); got != "secret" {
		t.Errorf("X-Internal-Key = %q, want secret (second transform must still run)", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// trackingReader reports whether anything ever read from it, so a test can
// prove the host adapter did not buffer a streaming body.
type trackingReader struct {
	r    io.Reader
	read bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	t.read = true
	return t.r.Read(p)
}

func (t *trackingReader) Close() error { return nil }

// TestServeHTTPStreamingBodyPassesThroughUnbuffered drives an octet-stream
// upload through a streaming-only plan and checks the body reader was never
// drained before the forwarder saw it.
func TestServeHTTPStreamingBodyPassesThroughUnbuffered(t *testing.T) {
	rows := []resolver.RouteEntry{
		{Method: "PUT", Path: "/api/blobs", TransformerKey: "stream-header-rewrite", Side: msgctx.SideRequest, Order: 10,
			ParamsJSON: `{"from":"X-Old","to":"X-New"}`},
	}
	m := newTestModule(t, rows, config.Default().Global)

	tracker := &trackingReader{r: bytes.NewReader([]byte("binary-bytes"))}
	req := httptest.NewRequest(http.MethodPut, "http://gw.local/api/blobs", tracker)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Old", "v")

	var forwardedBody []byte
	next := caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		if tracker.read {
			t.Error("streaming body was drained before the forwarder ran")
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		forwardedBody = b
		if got := r.Header.Get("X-New"); got != "v" {
			t.Errorf("X-New = %q, want v (streaming transform must still see headers)", got)
		}
		w.WriteHeader(http.StatusOK)
		return nil
	})

	rec := httptest.NewRecorder()
	if err := m.ServeHTTP(rec, req, next); err != nil {
		t.Fatalf("ServeHTTP: %v", err)
	}
	if string(forwardedBody) != "binary-bytes" {
		t.Errorf("forwarded body = %q, want %q", forwardedBody, "binary-bytes")
	}
}

// TestServeHTTPStripsTransportHeadersFromResponse verifies the host
// adapter's defense-in-depth header filter runs on the final response
// regardless of what the transform catalog did.
func TestServeHTTPStripsTransportHeadersFromResponse(t *testing.T) {
	rows := []resolver.RouteEntry{
		{Method: "*", Path: "/api/orders", TransformerKey: "gateway-response-tag", Side: msgctx.SideResponse, Order: 10},
	}
	m := newTestModule(t, rows, config.Default().Global)

	req := httptest.NewRequest(http.MethodGet, "http://gw.local/api/orders", nil)
	next := caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
		return nil
	})

	rec := httptest.NewRecorder()
	if err := m.ServeHTTP(rec, req, next); err != nil {
		t.Fatalf("ServeHTTP: %v", err)
	}
	if got := rec.Header().Get("Connection"); got != "" {
		t.Errorf("Connection header leaked through: %q", got)
	}
	if got := rec.Header().Get("X-Gateway-Version"); got == "" {
		t.Error("expected X-Gateway-Version to be set by gateway-response-tag")
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello")
	}
}
