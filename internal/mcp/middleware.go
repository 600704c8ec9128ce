package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrUnauthorized is returned for SDK requests without a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey int

const actorIDKey contextKey = iota

// getActorID extracts the calling user's ID from context.
func getActorID(ctx context.Context) string {
	v, _ := ctx.Value(actorIDKey).(string)
	return v
}

func withActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorResolver resolves the calling user from a bearer token.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}

// publicMethod reports whether method runs before a caller is known.
func publicMethod(method string) bool {
	return method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/")
}

func bearerToken(header http.Header) (string, error) {
	if header == nil {
		return "", fmt.Errorf("%w: missing headers", ErrUnauthorized)
	}
	auth := header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrUnauthorized)
	}
	return token, nil
}

// authMiddleware resolves the acting user from the request's bearer token.
func authMiddleware(resolver ActorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if publicMethod(method) {
				return next(ctx, method, req)
			}

			var header http.Header
			if extra := req.GetExtra(); extra != nil {
				header = extra.Header
			}
			token, err := bearerToken(header)
			if err != nil {
				return nil, err
			}

			actorID, err := resolver.ResolveActor(ctx, token)
			if err != nil || actorID == "" {
				return nil, fmt.Errorf("%w: invalid bearer token", ErrUnauthorized)
			}
			return next(withActorID(ctx, actorID), method, req)
		}
	}
}

// noAuthMiddleware acts as a fixed user when auth is disabled.
func noAuthMiddleware(actorID string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(withActorID(ctx, actorID), method, req)
		}
	}
}
