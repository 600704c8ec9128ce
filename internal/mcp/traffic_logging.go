package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload truncates request and result bodies in debug logs.
const maxLoggedPayload = 2048

// trafficLoggingMiddleware logs every MCP exchange at debug level, and
// failed exchanges at warn level.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			debug := logger.Enabled(ctx, slog.LevelDebug)
			attrs := []any{"direction", direction, "method", method}
			if debug {
				attrs = append(attrs, "session_id", sessionID(req))
				if tool := toolName(req); tool != "" {
					attrs = append(attrs, "tool", tool)
				}
				logger.Debug("mcp request", append(attrs, "params", formatPayload(requestParams(req)))...)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			attrs = append(attrs, "actor_id", getActorID(ctx), "duration", time.Since(start))

			switch {
			case err != nil:
				logger.Warn("mcp request failed", append(attrs, "error", err)...)
			case debug && !strings.HasPrefix(method, "notifications/"):
				logger.Debug("mcp response", append(attrs, "result", formatPayload(result))...)
			}
			return result, err
		}
	}
}

func sessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if session := req.GetSession(); session != nil {
		return session.ID()
	}
	return ""
}

func requestParams(req sdkmcp.Request) (p any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()
	return req.GetParams()
}

func toolName(req sdkmcp.Request) string {
	if call, ok := req.(*sdkmcp.CallToolRequest); ok && call.Params != nil {
		return call.Params.Name
	}
	return ""
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	if len(data) > maxLoggedPayload {
		return string(data[:maxLoggedPayload]) + "..."
	}
	return string(data)
}
