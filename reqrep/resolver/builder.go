package resolver

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

// Builder resolves a matched row list into a plan.Detail: for each row it
// looks up the transformer key in the catalog, builds a fresh instance, and
// configures it with the row's params. Unknown keys and Configure failures
// are logged and the row is dropped; the rest of the plan still builds.
type Builder struct {
	catalog *transform.Catalog
	log     *zap.Logger
}

// NewBuilder constructs a Builder over catalog. A nil logger falls back to
// zap's no-op logger.
func NewBuilder(catalog *transform.Catalog, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{catalog: catalog, log: log}
}

// BuildOptions carries the route-level policy fields that accompany a row
// list but do not themselves come from RouteEntry (the persistence schema
// keeps them on the route, not per-row).
type BuildOptions struct {
	Timeout                   time.Duration
	FailureMode               plan.FailureMode
	HasExplicitFailureMode    bool
	AllowParallelNonDependent bool
}

// Build resolves rows into a plan.Detail, partitioning entries by side.
func (b *Builder) Build(rows []RouteEntry, opts BuildOptions) plan.Detail {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })

	detail := plan.Detail{
		Timeout:                   opts.Timeout,
		FailureMode:               opts.FailureMode,
		HasExplicitFailureMode:    opts.HasExplicitFailureMode,
		AllowParallelNonDependent: opts.AllowParallelNonDependent,
	}

	for _, row := range rows {
		entry, ok := b.resolveRow(row)
		if !ok {
			continue
		}
		switch row.Side {
		case msgctx.SideResponse:
			detail.Response = append(detail.Response, entry)
		default:
			detail.Request = append(detail.Request, entry)
		}
	}

	return detail
}

func (b *Builder) resolveRow(row RouteEntry) (plan.Entry, bool) {
	instance, ok := b.catalog.New(row.TransformerKey)
	if !ok {
		b.log.Warn("resolver: unknown transformer key, dropping row",
			zap.String("transformer_key", row.TransformerKey),
			zap.String("method", row.Method),
			zap.String("path", row.Path),
		)
		return plan.Entry{}, false
	}

	if err := instance.Configure(transform.NewParamBag(row.ParamsJSON)); err != nil {
		b.log.Warn("resolver: transform failed to configure, dropping row",
			zap.String("transformer_key", row.TransformerKey),
			zap.String("method", row.Method),
			zap.String("path", row.Path),
			zap.Error(err),
		)
		return plan.Entry{}, false
	}

	return plan.Entry{Order: row.Order, Transform: instance}, true
}
