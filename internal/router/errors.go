package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/golang/glog"
	"go.uber.org/zap"

	"studyzone/internal/qerrors"
)

// ErrorResponse is the body of every failed request. Message names the action that failed; Detail is the
// known cause, or a generic text when the cause is internal.
type ErrorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

const unavailableDetail = "backend unavailable"

func statusFor(sentinel error) int {
	switch sentinel {
	case qerrors.ValidationError, qerrors.InvalidVideoURLError, qerrors.InvalidEmailError:
		return http.StatusBadRequest
	case qerrors.InvalidCredentials, qerrors.UnauthenticatedError:
		return http.StatusUnauthorized
	case qerrors.ForbiddenError:
		return http.StatusForbidden
	case qerrors.CourseNotFoundError, qerrors.ResourceNotFoundError, qerrors.BlobNotFoundError, qerrors.UserNotFoundError:
		return http.StatusNotFound
	case qerrors.CourseExistsError, qerrors.EmailExistsError, qerrors.DuplicateVideoError:
		return http.StatusConflict
	case qerrors.SessionRestoringError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. fallback is used as the message when err does not name its action.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, fallback string, err error) {
	resp := ErrorResponse{Message: fallback}
	var actionErr *qerrors.ActionError
	if errors.As(err, &actionErr) {
		resp.Message = actionErr.Action
	}

	status := http.StatusInternalServerError
	if sentinel, ok := qerrors.Known(err); ok {
		status = statusFor(sentinel)
		resp.Detail = sentinel.Error()
		if sentinel == qerrors.ValidationError {
			// Validation text only describes the request.
			cause := err
			if actionErr != nil {
				cause = actionErr.Err
			}
			resp.Detail = cause.Error()
		}
	} else {
		resp.Detail = unavailableDetail
		glog.Warningf("%s: %v\n", resp.Message, err)
		h.logger.Error(resp.Message, zap.String("path", r.URL.Path), zap.Error(err))
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
