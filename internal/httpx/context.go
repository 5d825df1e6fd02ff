package httpx

import (
	"context"
	"net/http"

	"librarydesk/internal/entity"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

// ContextWithUser returns a new context carrying the authenticated user.
func ContextWithUser(ctx context.Context, u entity.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom retrieves the authenticated user from the request context.
func UserFrom(r *http.Request) (entity.User, bool) {
	u, ok := r.Context().Value(userKey).(entity.User)
	return u, ok && u.ID != ""
}

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	u, _ := UserFrom(r)
	return u.ID
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	u, _ := UserFrom(r)
	return u.Role
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

const userSlotKey contextKey = "userSlot"

func contextWithUserSlot(ctx context.Context, slot *userSlot) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}

func recordUser(ctx context.Context, id string) {
	if slot, ok := ctx.Value(userSlotKey).(*userSlot); ok {
		slot.id = id
	}
}
