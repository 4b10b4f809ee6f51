package auth

import (
	"context"

	"pickup-dispatch/dispatch/internal/services"
)

type contextKey string

var (
	workspaceKey   contextKey = "workspace"
	requestIDKey   contextKey = "request_id"
)

// SetWorkspace stores the caller's workspace for handlers
func SetWorkspace(ctx context.Context, ws *services.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey, ws)
}

// GetWorkspace returns nil when the request was not authenticated
func GetWorkspace(ctx context.Context) *services.Workspace {
	if ws, ok := ctx.Value(workspaceKey).(*services.Workspace); ok {
		return ws
	}
	return nil
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
