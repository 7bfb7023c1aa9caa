package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/web/middleware"
	"github.com/DataVisuals/expectations/internal/web/session"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Subject     string   `json:"subject,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// errBadRequest marks request-shape problems caught before any rule logic
var errBadRequest = errors.New("bad request")

// statusFor maps error codes to HTTP statuses
var statusFor = map[string]int{
	dqerrors.ErrUnknownTemplate:        http.StatusNotFound,
	dqerrors.ErrUnimplementedParameter: http.StatusInternalServerError,
	dqerrors.ErrInvalidParameter:       http.StatusUnprocessableEntity,
	dqerrors.ErrMissingParameter:       http.StatusUnprocessableEntity,
	dqerrors.ErrMalformedDocument:      http.StatusUnprocessableEntity,
	dqerrors.ErrIndexOutOfRange:        http.StatusNotFound,
	dqerrors.ErrMissingTest:            http.StatusBadRequest,
	dqerrors.ErrDatasetReadFailure:     http.StatusBadRequest,
	dqerrors.ErrEngineFailure:          http.StatusBadGateway,
}

func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: "internal_error", Message: err.Error()}

	if re, ok := dqerrors.As(err); ok {
		if s, ok := statusFor[re.Code]; ok {
			status = s
		}
		body = ErrorResponse{
			Error:       re.Code,
			Message:     err.Error(),
			Subject:     re.Subject,
			Suggestions: re.Suggestions,
		}
	} else if session.IsNotFound(err) {
		status = http.StatusNotFound
		body.Error = "session_not_found"
	} else if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
		body.Error = "bad_request"
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		if _, coded := dqerrors.As(err); !coded {
			body.Message = "An unexpected error occurred"
		}
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}
