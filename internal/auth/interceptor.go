package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	svcErr "github.com/oggyb/friender/internal/errors"
)

// UnaryInterceptor resolves the bearer token in the "authorization" metadata
// into an Identity on the context. Methods listed in public skip the check.
func UnaryInterceptor(tm *TokenManager, public ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(public))
	for _, m := range public {
		open[m] = true
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		raw := bearer(ctx)
		if raw == "" {
			return nil, svcErr.Unauthenticated("authorization required")
		}
		id, err := tm.Parse(raw)
		if err != nil {
			return nil, svcErr.Unauthenticated(err.Error())
		}
		return handler(WithIdentity(ctx, id), req)
	}
}

func bearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, found := strings.CutPrefix(v, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
