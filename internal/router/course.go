package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"studyzone/internal/middleware"
	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

func (h *Handlers) CourseRoutes() *chi.Mux {
	router := chi.NewRouter()
	signedIn := h.auth.RequireAuth(false)
	admin := h.auth.RequireAuth(true)

	// Courses of a year and semester, or every course
	router.With(signedIn).Get("/", h.queryCoursesHandler)

	// Admin dashboard
	router.With(admin).Get("/stats", h.statsHandler)
	router.With(admin).Get("/watch", h.watchCoursesHandler)

	// Modifying courses themselves
	router.With(admin).Post("/create", h.createCourseHandler)
	router.With(admin).Post("/edit/{courseID}", h.editCourseHandler)
	router.With(admin).Post("/delete/{courseID}", h.deleteCourseHandler)

	router.Route("/{courseID}", func(r chi.Router) {
		r.Use(middleware.CourseCtx())

		// Get metadata about a course
		r.With(signedIn).Get("/", h.getCourseHandler)

		h.resourceRoutes(r, signedIn, admin)
	})

	return router
}

// GET: /?year=&semester=
func (h *Handlers) queryCoursesHandler(w http.ResponseWriter, r *http.Request) {
	req := &models.GetCoursesRequest{
		AcademicYear: r.URL.Query().Get("year"),
		Semester:     r.URL.Query().Get("semester"),
	}

	courses, err := h.catalog.QueryCourses(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "failed to load courses", err)
		return
	}

	render.JSON(w, r, courses)
}

// GET: /stats
func (h *Handlers) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, "failed to load statistics", err)
		return
	}

	render.JSON(w, r, stats)
}

// GET: /watch
//
// Streams the course list as server-sent events, one "courses" event per snapshot. Slow clients only see
// the latest snapshot.
func (h *Handlers) watchCoursesHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, "failed to watch courses", fmt.Errorf("streaming unsupported"))
		return
	}

	updates := make(chan []*models.Course, 1)
	unsubscribe, err := h.catalog.SubscribeCourses(r.Context(), func(courses []*models.Course) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- courses:
		default:
		}
	})
	if err != nil {
		h.writeError(w, r, "failed to watch courses", err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case courses := <-updates:
			data, err := json.Marshal(courses)
			if err != nil {
				h.logger.Error("failed to encode course snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: courses\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// POST: /create
func (h *Handlers) createCourseHandler(w http.ResponseWriter, r *http.Request) {
	var c models.Course
	if err := decode(r, "failed to create course", &c); err != nil {
		h.writeError(w, r, "failed to create course", err)
		return
	}

	if err := h.catalog.CreateCourse(r.Context(), &c); err != nil {
		h.writeError(w, r, "failed to create course", err)
		return
	}

	h.audit(r, "course created", c.Code)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

// POST: /edit/{courseID}
func (h *Handlers) editCourseHandler(w http.ResponseWriter, r *http.Request) {
	var c models.Course
	if err := decode(r, "failed to update course", &c); err != nil {
		h.writeError(w, r, "failed to update course", err)
		return
	}
	c.Code = chi.URLParam(r, "courseID")

	if err := h.catalog.UpdateCourse(r.Context(), &c); err != nil {
		h.writeError(w, r, "failed to update course", err)
		return
	}

	h.audit(r, "course edited", c.Code)
	writeText(w, "Successfully edited course "+c.Code)
}

// POST: /delete/{courseID}?purge=true
func (h *Handlers) deleteCourseHandler(w http.ResponseWriter, r *http.Request) {
	req := &models.DeleteCourseRequest{CourseID: chi.URLParam(r, "courseID")}
	if v := r.URL.Query().Get("purge"); v != "" {
		purge, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, "failed to delete course", qerrors.Validation(err))
			return
		}
		req.Purge = purge
	}

	if err := h.catalog.DeleteCourse(r.Context(), req); err != nil {
		h.writeError(w, r, "failed to delete course", err)
		return
	}

	h.audit(r, "course deleted", req.CourseID)
	writeText(w, "Successfully deleted course "+req.CourseID)
}

// GET: /{courseID}
func (h *Handlers) getCourseHandler(w http.ResponseWriter, r *http.Request) {
	course, err := h.catalog.GetCourse(r.Context(), middleware.GetCourseID(r))
	if err != nil {
		h.writeError(w, r, "failed to load course", err)
		return
	}

	render.JSON(w, r, course)
}
