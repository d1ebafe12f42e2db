package api

import "context"

type apiKeyCtxKey struct{}

// WithAPIKey stores a key taken from transport metadata (an Authorization
// header or gRPC metadata). It is used when the request's key field is empty.
func WithAPIKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return key
}

func resolveKey(ctx context.Context, key string) string {
	if key != "" {
		return key
	}
	return APIKeyFromContext(ctx)
}
