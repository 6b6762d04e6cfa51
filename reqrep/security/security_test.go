package security

import "testing"

func TestFilterResponseHeadersStripsTransportHeaders(t *testing.T) {
	in := map[string][]string{
		"Content-Type":      {"application/json"},
		"Connection":        {"keep-alive"},
		"Transfer-Encoding": {"chunked"},
		"X-Gateway-Version": {"1"},
	}
	out := FilterResponseHeaders(in, nil, "/api/orders")

	if _, ok := out["Connection"]; ok {
		t.Fatalf("expected Connection to be stripped")
	}
	if _, ok := out["Transfer-Encoding"]; ok {
		t.Fatalf("expected Transfer-Encoding to be stripped")
	}
	if got := out["Content-Type"]; len(got) != 1 || got[0] != "application/json" {
		t.Fatalf("expected Content-Type preserved, got %v", got)
	}
	if got := out["X-Gateway-Version"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("expected X-Gateway-Version preserved, got %v", got)
	}
}

func TestValidateURLScheme(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"http://backend.internal:9000", false},
		{"https://backend.internal", false},
		{"/relative/path", false},
		{"ftp://backend.internal", true},
		{"javascript:alert(1)", true},
	}
	for _, c := range cases {
		err := ValidateURLScheme(c.url)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateURLScheme(%q) error = %v, wantErr %v", c.url, err, c.wantErr)
		}
	}
}
