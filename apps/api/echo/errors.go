package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/classwork"
	"github.com/kymaza/darasa/core/school"
	"github.com/kymaza/darasa/storage/sheets"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
)

// notFoundErrs maps domain sentinels to their user-facing message.
var notFoundErrs = map[error]string{
	school.ErrStudentNotFound:  school.ErrStudentNotFound.Error(),
	school.ErrClassNotFound:    school.ErrClassNotFound.Error(),
	school.ErrLectureNotFound:  school.ErrLectureNotFound.Error(),
	classwork.ErrScoreNotFound: classwork.ErrScoreNotFound.Error(),
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			code, message = classifyRemoteErr(err, cause, logger)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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

// classifyRemoteErr translates sync-engine failures, distinguishing
// retryable conditions from terminal ones so a client can decide whether
// to resubmit.
func classifyRemoteErr(err, cause error, logger core.Logger) (int, interface{}) {
	if msg, ok := notFoundErrs[cause]; ok {
		return http.StatusNotFound, msg
	}

	switch cause {
	case sheets.ErrRemoteUnavailable:
		return http.StatusServiceUnavailable, echo.Map{
			"error":     "the data store is unavailable; try again later",
			"retryable": false,
		}
	case sheets.ErrStaleSnapshot:
		return http.StatusConflict, echo.Map{
			"error":     "the data changed while saving; reload and retry",
			"retryable": true,
		}
	}

	if pbe, ok := sheets.AsPartialBatch(err); ok {
		logger.Error("partial batch failure", pbe)
		return http.StatusServiceUnavailable, echo.Map{
			"error":     "the save was interrupted; some changes were written, re-submit to finish",
			"committed": pbe.Committed,
			"pending":   pbe.Pending,
			"retryable": true,
		}
	}
	if sheets.IsQuotaErr(cause) {
		return http.StatusServiceUnavailable, echo.Map{
			"error":     "the data store is rate limiting us; try again in a minute",
			"retryable": true,
		}
	}

	// any other error is a server error
	msg := http.StatusText(http.StatusInternalServerError)
	logger.Error(msg, errors.Wrap(err, msg))
	return http.StatusInternalServerError, msg
}
