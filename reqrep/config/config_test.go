package config

import (
	"testing"
	"time"

	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
)

func TestBindEmptyUsesDefaults(t *testing.T) {
	bound, err := Bind(nil)
	if err != nil {
		t.Fatalf("Bind(nil): %v", err)
	}
	if bound.Global.DefaultTimeout != 5*time.Second {
		t.Errorf("DefaultTimeout = %v, want 5s", bound.Global.DefaultTimeout)
	}
	if bound.Global.DefaultFailureMode != plan.LogAndSkip {
		t.Errorf("DefaultFailureMode = %v, want LogAndSkip", bound.Global.DefaultFailureMode)
	}
}

func TestBindOverridesFields(t *testing.T) {
	raw := []byte(`{
		"DefaultTimeout": "2s",
		"DefaultFailureMode": "StopPipeline",
		"RedactedHeaderKeys": ["X-Custom-Secret"],
		"RedactedQueryKeys": ["sig"]
	}`)
	bound, err := Bind(raw)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.Global.DefaultTimeout != 2*time.Second {
		t.Errorf("DefaultTimeout = %v, want 2s", bound.Global.DefaultTimeout)
	}
	if bound.Global.DefaultFailureMode != plan.StopPipeline {
		t.Errorf("DefaultFailureMode = %v, want StopPipeline", bound.Global.DefaultFailureMode)
	}
	if got := bound.Redactor.Header("X-Custom-Secret", "v"); got != "***REDACTED***" {
		t.Errorf("Redactor.Header(X-Custom-Secret) = %q, want masked", got)
	}
	if got := bound.Redactor.Query("sig", "v"); got != "***REDACTED***" {
		t.Errorf("Redactor.Query(sig) = %q, want masked", got)
	}
}

func TestBindRejectsInvalidFailureMode(t *testing.T) {
	_, err := Bind([]byte(`{"DefaultFailureMode": "Bogus"}`))
	if err == nil {
		t.Fatal("Bind with invalid DefaultFailureMode: want error, got nil")
	}
}
