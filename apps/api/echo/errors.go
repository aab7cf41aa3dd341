package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/enrolment"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "session not authenticated")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInvalidDataURL  = echo.NewHTTPError(http.StatusBadRequest, "signature must be a PNG data URL")
	errUnknownUploadTo = echo.NewHTTPError(http.StatusNotFound, "unknown upload field")
)

// wizard errors that mean the action does not apply to the current state
var conflicts = []error{
	enrolment.ErrNoNextStep,
	enrolment.ErrBackDisabled,
	enrolment.ErrNotOnReview,
	enrolment.ErrAlreadySubmitted,
	enrolment.ErrSubmitDisabled,
	enrolment.ErrMissingName,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			httpErr *echo.HTTPError
			vErr    *core.ValidationError
			cErr    *core.ConfigurationError
			dErr    *core.DispatchError
		)
		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = httpErr.Message
				break
			}
			if httpErr.Internal != nil {
				if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
					httpErr = herr
				}
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &vErr):
			code = http.StatusBadRequest
			message = echo.Map{"errors": vErr.Fields}
		case errors.Is(err, enrolment.ErrSessionNotFound):
			code = http.StatusNotFound
			message = err.Error()
		case isConflict(err):
			code = http.StatusConflict
			message = err.Error()
		case errors.As(err, &cErr):
			code = http.StatusServiceUnavailable
			message = "submissions are unavailable: " + cErr.Error()
			logger.Error(cErr.Error(), err, contextPerson(ctx))
		case errors.As(err, &dErr):
			code = http.StatusBadGateway
			message = "the submission could not be sent, please try again"
			logger.Error(dErr.Error(), err, contextPerson(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextPerson(ctx))

			if ctx.Echo().Debug {
				message = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func isConflict(err error) bool {
	for _, c := range conflicts {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

func contextPerson(ctx echo.Context) core.Person {
	var p core.Person
	if claims, err := getContextClaims(ctx); err == nil {
		p.ID = claims.Subject
	}
	return p
}
