package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestCourseCtx(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/{courseID}", func(r chi.Router) {
		r.Use(CourseCtx())
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(GetCourseID(r)))
		})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ICT2113/", nil))
	assert.Equal(t, "ICT2113", rec.Body.String())
}

func TestGetCourseIDOutsideCourseCtx(t *testing.T) {
	assert.Equal(t, "", GetCourseID(httptest.NewRequest(http.MethodGet, "/", nil)))
}
