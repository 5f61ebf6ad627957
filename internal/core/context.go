package core

import "context"

type contextKey struct{}

// RequestInfo describes the client behind a conversion. It is stored with
// the conversion's history record.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// ContextWithRequestInfo returns a copy of ctx carrying info.
func ContextWithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// RequestInfoFromContext returns the RequestInfo stored in ctx, or the zero
// value when there is none.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(contextKey{}).(RequestInfo)
	return info
}
