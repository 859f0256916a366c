package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// RequireAuth is a middleware that rejects requests unless a user is signed in. While the session is
// still being restored requests get 503 with Retry-After, so the caller can show a loading state instead
// of the sign-in screen. The current user is added to the request context, and can be accessed via
// GetUserFromRequest.
func (m *Manager) RequireAuth(adminOnly bool) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := m.Snapshot()

			switch snap.State {
			case StateRestoring:
				w.Header().Set("Retry-After", "1")
				reject(w, r, http.StatusServiceUnavailable, qerrors.SessionRestoringError)
				return
			case StateUnauthenticated:
				reject(w, r, http.StatusUnauthorized, qerrors.UnauthenticatedError)
				return
			}

			if adminOnly && !snap.User.IsAdmin() {
				reject(w, r, http.StatusForbidden, qerrors.ForbiddenError)
				return
			}

			// create a new request context containing the authenticated user
			ctxWithUser := context.WithValue(r.Context(), currentUserKey, snap.User)
			next.ServeHTTP(w, r.WithContext(ctxWithUser))
		})
	}
}

// GetUserFromRequest returns the user stored by RequireAuth. Only works with routes that implement the
// RequireAuth middleware.
func GetUserFromRequest(r *http.Request) (*models.CurrentUser, error) {
	user, ok := r.Context().Value(currentUserKey).(*models.CurrentUser)
	if !ok || user == nil {
		return nil, qerrors.UnauthenticatedError
	}
	return user, nil
}

// Helpers

func reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": err.Error()})
}
