package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/console"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Changed *bool  `json:"changed,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, console.ErrConsoleNotFound),
		errors.Is(err, console.ErrVersionNotFound),
		errors.Is(err, assist.ErrProducerNotFound):
		return http.StatusNotFound
	case errors.Is(err, console.ErrPreviewActive),
		errors.Is(err, console.ErrNoPreview),
		errors.Is(err, console.ErrNothingToUndo),
		errors.Is(err, console.ErrNothingToRedo),
		errors.Is(err, console.ErrConsoleClosed):
		return http.StatusConflict
	case errors.Is(err, console.ErrInvalidModification),
		errors.Is(err, console.ErrInvalidID),
		errors.Is(err, assist.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, assist.ErrInvalidResponse),
		errors.Is(err, assist.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.Is(err, console.ErrNoPersister):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			body.Error = fmt.Sprint(he.Message)
		}
	}
	if errors.Is(err, console.ErrNothingToUndo) || errors.Is(err, console.ErrNothingToRedo) {
		changed := false
		body.Changed = &changed
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.log.Warn("%d %s %s: %v", code, req.Method, req.URL.Path, err)
	} else {
		s.log.Debug("%d %s %s: %v", code, req.Method, req.URL.Path, err)
	}

	if !c.Response().Committed {
		_ = c.JSON(code, body)
	}
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
