package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

// SessionRoutes alter the device's session. No auth middlewares required.
func (h *Handlers) SessionRoutes() *chi.Mux {
	router := chi.NewRouter()

	// State of the session, including the current user
	router.Get("/", h.getSessionHandler)

	router.Post("/login", h.loginHandler)
	router.Post("/register", h.registerHandler)
	router.Post("/logout", h.logoutHandler)

	return router
}

// GET: /
func (h *Handlers) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.auth.Snapshot())
}

// POST: /login
func (h *Handlers) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, "failed to sign in", &req); err != nil {
		h.writeError(w, r, "failed to sign in", err)
		return
	}

	ok, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "failed to sign in", err)
		return
	}
	if !ok {
		h.writeError(w, r, "failed to sign in", qerrors.InvalidCredentials)
		return
	}

	render.JSON(w, r, h.auth.Snapshot())
}

// POST: /register
func (h *Handlers) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, "failed to register", &req); err != nil {
		h.writeError(w, r, "failed to register", err)
		return
	}

	if _, err := h.auth.Register(r.Context(), &req); err != nil {
		h.writeError(w, r, "failed to register", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.auth.Snapshot())
}

// POST: /logout
func (h *Handlers) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.writeError(w, r, "failed to sign out", err)
		return
	}

	render.JSON(w, r, h.auth.Snapshot())
}
