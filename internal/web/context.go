package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/pdftable/internal/core"
)

// withRequestInfo attaches the client address and user agent to ctx for the
// conversion history. RemoteAddr has already been resolved by TrustedRealIP.
func withRequestInfo(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequestInfo(ctx, core.RequestInfo{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
