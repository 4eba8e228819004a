package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/avolkov-dev/filevault/internal/common"
)

type contextKey string

const userIDKey contextKey = "userID"

// authMiddleware validates the bearer token and stores the account ID in
// the request context. No business logic runs for unauthenticated calls.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, common.ErrUnauthorized)
			return
		}

		userID, err := h.users.VerifyToken(strings.TrimPrefix(header, common.BearerPrefix))
		if err != nil {
			writeError(w, common.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
