package middleware

import "context"

type contextKey string

const ctxVisitorToken contextKey = "visitor_token"

func VisitorTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVisitorToken).(string); ok {
		return v
	}
	return ""
}

// WithVisitorToken injects the visitor identifier into the context.
func WithVisitorToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVisitorToken, token)
}
