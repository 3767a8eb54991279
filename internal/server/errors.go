package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/response"
)

var errRateLimited = perrors.New(perrors.ErrCodeRateLimited, "rate limit exceeded", nil)

// handleError renders every failure as an error envelope. PodErrors map to
// their HTTP status; echo errors (unknown route, bad method) are translated
// to the closest code.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		env    *response.Envelope[struct{}]
		he     *echo.HTTPError
	)
	pe, ok := perrors.As(err)
	switch {
	case ok:
		status = perrors.HTTPStatus(pe.Code)
		env = response.FromError(pe)
	case errors.As(err, &he):
		status = he.Code
		env = response.Fail[struct{}](codeForStatus(he.Code), http.StatusText(he.Code))
	default:
		status = http.StatusInternalServerError
		env = response.FromError(err)
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		env.Error.TraceID = id
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request_failed",
			slog.String("path", c.Request().URL.Path),
			slog.String("code", env.Error.Code),
			slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, env)
	}
	if err != nil {
		s.logger.Error("error_response_failed", slog.String("error", err.Error()))
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return perrors.ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		return perrors.ErrCodeRateLimited
	case status >= 400 && status < 500:
		return perrors.ErrCodeInvalidParameter
	default:
		return perrors.ErrCodeInternal
	}
}
