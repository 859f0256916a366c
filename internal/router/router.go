package router

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"studyzone/internal/auth"
	"studyzone/internal/catalog"
	"studyzone/internal/qerrors"
)

// Handlers serves the HTTP API on top of the auth manager and the course catalog.
type Handlers struct {
	auth    *auth.Manager
	catalog *catalog.Service
	logger  *zap.Logger
}

func New(authManager *auth.Manager, catalogService *catalog.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{auth: authManager, catalog: catalogService, logger: logger}
}

// decode reads a JSON body into v. Decoding failures are reported as validation errors of action.
func decode(r *http.Request, action string, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return qerrors.Action(action, qerrors.Validation(err))
	}
	return nil
}

func writeText(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg))
}

// audit logs a catalog change together with the signed-in user that made it.
func (h *Handlers) audit(r *http.Request, msg, courseID string) {
	fields := []zap.Field{zap.String("course", courseID)}
	if user, err := auth.GetUserFromRequest(r); err == nil {
		fields = append(fields, zap.String("by", user.Email))
	}
	h.logger.Info(msg, fields...)
}
