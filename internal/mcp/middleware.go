package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const sessionIDKey contextKey = iota

// getSessionID extracts the editing session ID from context.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// sessionMiddleware reads the editing session ID from request metadata so that
// clients can omit session_id arguments.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string
			// Some notifications have nil params behind a non-nil interface.
			if params := req.GetParams(); params != nil {
				func() {
					defer func() { recover() }()
					if meta := params.GetMeta(); meta != nil {
						if sid, ok := meta["session_id"].(string); ok {
							sessionID = sid
						}
					}
				}()
			}
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}
			return next(ctx, method, req)
		}
	}
}
