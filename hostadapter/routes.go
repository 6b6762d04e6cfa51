package hostadapter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/resolver"
)

// routeRow is the on-disk JSON shape of one resolver.RouteEntry; Side is
// spelled "request"/"response" in configuration rather than msgctx.Side's
// internal int encoding.
type routeRow struct {
	Method         string `json:"method"`
	Path           string `json:"path"`
	TransformerKey string `json:"transformer_key"`
	Side           string `json:"side"`
	Order          int    `json:"order"`
	Params         string `json:"params,omitempty"`
}

// fileRouteSource implements resolver.RouteSource by reading a JSON array
// of route rows from a file path, standing in for whatever persistence
// layer the host actually has (database, config service, etc). Rows are
// read once, at Routes() call time, with no caching of its own — the
// StaticProvider layered on top owns the plan cache.
type fileRouteSource struct {
	path string
}

func newFileRouteSource(path string) *fileRouteSource {
	return &fileRouteSource{path: path}
}

func (s *fileRouteSource) Routes() ([]resolver.RouteEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("hostadapter: failed to read route config %q: %w", s.path, err)
	}

	var rows []routeRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("hostadapter: failed to parse route config %q: %w", s.path, err)
	}

	entries := make([]resolver.RouteEntry, 0, len(rows))
	for _, r := range rows {
		side := msgctx.SideRequest
		if r.Side == "response" {
			side = msgctx.SideResponse
		}
		entries = append(entries, resolver.RouteEntry{
			Method:         r.Method,
			Path:           r.Path,
			TransformerKey: r.TransformerKey,
			Side:           side,
			Order:          r.Order,
			ParamsJSON:     r.Params,
		})
	}
	return entries, nil
}
