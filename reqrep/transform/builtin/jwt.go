package builtin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// JWTPassthrough is a no-op flagged for tracing visibility: it exists so a
// plan can show, in its entry list, that a bearer token was present and was
// deliberately forwarded unmodified.
type JWTPassthrough struct{}

func NewJWTPassthrough() transform.Transform { return &JWTPassthrough{} }

func (t *JWTPassthrough) Name() string { return "jwt-forward" }

func (t *JWTPassthrough) Configure(p *transform.ParamBag) error { return nil }

func (t *JWTPassthrough) ShouldApply(ctx *msgctx.BufferedView) bool {
	return bearerToken(ctx.Headers().Get("Authorization")) != ""
}

func (t *JWTPassthrough) Apply(ctx context.Context, mc *msgctx.BufferedView) error { return nil }

// JWTClaimsExtract maps JWT claim names to header names, projecting
// identity information from the Authorization bearer token onto headers
// the backend can read without parsing the token itself. The token's
// signature is never checked here — claim projection, not authentication;
// a malformed token is silently skipped rather than treated as a failure.
type JWTClaimsExtract struct {
	claimToHeader map[string]string
}

func NewJWTClaimsExtract() transform.Transform { return &JWTClaimsExtract{} }

func (t *JWTClaimsExtract) Name() string { return "jwt-claims-extract" }

func (t *JWTClaimsExtract) Configure(p *transform.ParamBag) error {
	mapping := p.Pairs("claim_map")
	if len(mapping) == 0 {
		return fmt.Errorf("%w: claim_map", transform.ErrMissingParam)
	}
	t.claimToHeader = mapping
	return nil
}

func (t *JWTClaimsExtract) ShouldApply(ctx *msgctx.BufferedView) bool {
	return bearerToken(ctx.Headers().Get("Authorization")) != ""
}

func (t *JWTClaimsExtract) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	token := bearerToken(mc.Headers().Get("Authorization"))
	claims, ok := decodeJWTClaims(token)
	if !ok {
		// Malformed tokens are skipped silently, per the catalog's contract.
		return nil
	}
	for claim, header := range t.claimToHeader {
		if v, ok := claims[claim]; ok {
			if s, ok := v.(string); ok {
				mc.Headers().Set(header, s)
			}
		}
	}
	return nil
}

func bearerToken(authorization string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
}

// decodeJWTClaims base64url-decodes the payload segment of a JWT and parses
// it as a JSON object. It does not verify the signature: this catalog only
// ever projects claims onto headers, it never authenticates.
func decodeJWTClaims(token string) (map[string]any, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, false
	}
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, false
	}
	return claims, true
}
