package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const courseIDKey contextKey = "courseID"

// CourseCtx stores the {courseID} URL parameter in the request context. Codes are matched
// case-sensitively, so only surrounding whitespace is trimmed.
func CourseCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))

			ctx := context.WithValue(r.Context(), courseIDKey, courseID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCourseID returns the course code stored by CourseCtx, or "" outside of it.
func GetCourseID(r *http.Request) string {
	courseID, _ := r.Context().Value(courseIDKey).(string)
	return courseID
}
