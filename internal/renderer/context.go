package renderer

import (
	"context"
	"net/http"
)

type requestKey struct{}

func withRequest(ctx context.Context, r *http.Request) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFromContext returns the request being rendered. Schema and view
// handlers receive it through their context.
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok && r != nil
}
