package builtin

import "github.com/agaheman/ReqRepTransformation/reqrep/transform"

// Register adds every transform in the built-in catalog to c, keyed by its
// stable transformer-key (the same string returned by its Name() method).
// Hosts that supply their own custom transforms register those separately
// on the same catalog.
func Register(c *transform.Catalog) {
	c.Register("add-header", NewAddHeader)
	c.Register("remove-header", NewRemoveHeader)
	c.Register("rename-header", NewRenameHeader)
	c.Register("append-header", NewAppendHeader)
	c.Register("correlation-id", NewCorrelationID)
	c.Register("request-id", NewRequestIDPropagation)
	c.Register("path-prefix-rewrite", NewPathPrefixRewrite)
	c.Register("path-regex-rewrite", NewPathRegexRewrite)
	c.Register("add-query-param", NewAddQueryParam)
	c.Register("remove-query-param", NewRemoveQueryParam)
	c.Register("host-rewrite", NewHostRewrite)
	c.Register("method-override", NewMethodOverride)
	c.Register("json-field-add", NewJSONFieldAdd)
	c.Register("json-field-remove", NewJSONFieldRemove)
	c.Register("json-field-rename", NewJSONFieldRename)
	c.Register("json-nested-set", NewJSONNestedSet)
	c.Register("gateway-metadata", NewGatewayMetadata)
	c.Register("jwt-forward", NewJWTPassthrough)
	c.Register("jwt-claims-extract", NewJWTClaimsExtract)
	c.Register("strip-authorization", NewStripAuthorization)
	c.Register("remove-internal-response-headers", NewRemoveInternalResponseHeaders)
	c.Register("gateway-response-tag", NewGatewayResponseTag)
	c.Register("streaming-noop", NewNoopStreamingTransform)
	c.Register("stream-header-rewrite", NewStreamHeaderRewrite)
}
