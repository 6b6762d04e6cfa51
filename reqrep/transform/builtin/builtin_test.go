package builtin

import (
	"context"
	"net/url"
	"testing"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/payload"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

func newBufferedView(t *testing.T, method, rawURL, contentType string, body []byte, headers map[string][]string) *msgctx.BufferedView {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	pld := payload.NewFromBuffer(contentType, body)
	mc := msgctx.New(msgctx.SideRequest, method, u, msgctx.NewMapHeadersFrom(headers), pld, context.Background())
	return mc.Buffered()
}

func configure(t *testing.T, tr transform.Transform, json string) {
	t.Helper()
	if err := tr.Configure(transform.NewParamBag(json)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
}

func TestAddHeaderDoesNotOverwriteByDefault(t *testing.T) {
	mc := newBufferedView(t, "GET", "http://x/y", "text/plain", nil, map[string][]string{
		"X-Foo": {"original"},
	})
	tr := NewAddHeader().(*AddHeader)
	configure(t, tr, `{"name":"X-Foo","value":"new"}`)

	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := mc.Headers().Get("X-Foo"); got != "original" {
		t.Fatalf("X-Foo = %q, want %q", got, "original")
	}
}

func TestPathPrefixRewrite(t *testing.T) {
	mc := newBufferedView(t, "GET", "http://x/api/products", "text/plain", nil, nil)
	tr := NewPathPrefixRewrite().(*PathPrefixRewrite)
	configure(t, tr, `{"from":"/api/products","to":"/catalog"}`)

	if !tr.ShouldApply(mc) {
		t.Fatal("ShouldApply = false, want true")
	}
	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := mc.Address().Path; got != "/catalog" {
		t.Fatalf("path = %q, want %q", got, "/catalog")
	}
}

func TestJWTClaimsExtract(t *testing.T) {
	// header.payload.signature, payload = {"sub":"u123","email":"a@b"}
	const token = "Bearer eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MTIzIiwiZW1haWwiOiJhQGIifQ.sig"
	mc := newBufferedView(t, "POST", "http://x/api/orders", "application/json", []byte(`{"order":"ABC"}`), map[string][]string{
		"Authorization": {token},
	})
	tr := NewJWTClaimsExtract().(*JWTClaimsExtract)
	configure(t, tr, `{"claim_map":"sub=X-User-Id|email=X-User-Email"}`)

	if !tr.ShouldApply(mc) {
		t.Fatal("ShouldApply = false, want true")
	}
	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := mc.Headers().Get("X-User-Id"); got != "u123" {
		t.Fatalf("X-User-Id = %q, want %q", got, "u123")
	}
	if got := mc.Headers().Get("X-User-Email"); got != "a@b" {
		t.Fatalf("X-User-Email = %q, want %q", got, "a@b")
	}
	if got := mc.Headers().Get("Authorization"); got != token {
		t.Fatalf("Authorization was mutated: %q", got)
	}
}

func TestJWTClaimsExtractSkipsMalformedToken(t *testing.T) {
	mc := newBufferedView(t, "POST", "http://x/api/orders", "application/json", []byte(`{}`), map[string][]string{
		"Authorization": {"Bearer not-a-jwt"},
	})
	tr := NewJWTClaimsExtract().(*JWTClaimsExtract)
	configure(t, tr, `{"claim_map":"sub=X-User-Id"}`)

	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply on malformed token should not fail: %v", err)
	}
	if got := mc.Headers().Get("X-User-Id"); got != "" {
		t.Fatalf("X-User-Id = %q, want empty", got)
	}
}

func TestGatewayMetadataInjectsTopLevelObject(t *testing.T) {
	mc := newBufferedView(t, "POST", "http://x/api/orders", "application/json", []byte(`{"order":"ABC"}`), nil)
	tr := NewGatewayMetadata().(*GatewayMetadata)
	configure(t, tr, `{}`)

	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, err := mc.Payload().GetJson()
	if err != nil {
		t.Fatalf("GetJson: %v", err)
	}
	obj := out.(map[string]any)
	gw, ok := obj["_gateway"].(map[string]any)
	if !ok {
		t.Fatalf("_gateway field missing or wrong type: %v", obj)
	}
	for _, key := range []string{"version", "processedAt", "requestId"} {
		if _, ok := gw[key]; !ok {
			t.Errorf("_gateway missing field %q", key)
		}
	}
	if len(gw["requestId"].(string)) != 32 {
		t.Errorf("requestId len = %d, want 32", len(gw["requestId"].(string)))
	}
}

func TestHostRewriteSchemeQualifiedTarget(t *testing.T) {
	mc := newBufferedView(t, "GET", "http://old:8080/api", "text/plain", nil, nil)
	tr := NewHostRewrite().(*HostRewrite)
	configure(t, tr, `{"host":"https://backend:8443"}`)

	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := mc.Address().Host; got != "backend:8443" {
		t.Errorf("host = %q, want %q", got, "backend:8443")
	}
	if got := mc.Address().Scheme; got != "https" {
		t.Errorf("scheme = %q, want %q", got, "https")
	}

	bad := NewHostRewrite().(*HostRewrite)
	if err := bad.Configure(transform.NewParamBag(`{"host":"ftp://backend"}`)); err == nil {
		t.Fatal("Configure accepted a non-http(s) scheme, want error")
	}
}

func TestStripAuthorization(t *testing.T) {
	mc := newBufferedView(t, "GET", "http://x/api/admin", "text/plain", nil, map[string][]string{
		"Authorization": {"Bearer token"},
	})
	tr := NewStripAuthorization().(*StripAuthorization)
	configure(t, tr, "")

	if !tr.ShouldApply(mc) {
		t.Fatal("ShouldApply = false, want true")
	}
	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := mc.Headers().Get("Authorization"); got != "" {
		t.Fatalf("Authorization = %q, want empty", got)
	}
}

func TestJSONNestedSetCreatesIntermediateObjects(t *testing.T) {
	mc := newBufferedView(t, "POST", "http://x/api", "application/json", []byte(`{}`), nil)
	tr := NewJSONNestedSet().(*JSONNestedSet)
	configure(t, tr, `{"path":"meta.trace.id","value":"abc"}`)

	if err := tr.Apply(context.Background(), mc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, _ := mc.Payload().GetJson()
	obj := out.(map[string]any)
	meta := obj["meta"].(map[string]any)
	trace := meta["trace"].(map[string]any)
	if trace["id"] != "abc" {
		t.Fatalf("nested value = %v, want %q", trace["id"], "abc")
	}
}
