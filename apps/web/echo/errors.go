package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
)

var (
	errHTTPForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors flattens a validation failure into a field → message map, or
// returns nil when err is not a validation failure.
func fieldErrors(err error) map[string]string {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fieldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fieldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		return fieldErrs
	case *core.ValidationError:
		fieldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fieldErrs[fErr.Field] = fErr.Error
		}
		return fieldErrs
	}
	return nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders
// our errors as HTML pages.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var fieldErrs map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fieldErrs = fieldErrors(origErr)
			code = http.StatusBadRequest
			message = "validation failed"
		case *core.ValidationError:
			if origErr.Fields != nil {
				fieldErrs = fieldErrors(origErr)
			}
			code = http.StatusBadRequest
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(err.Error(), err)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			var rerr error
			if ctx.Request().Method == http.MethodHead { // Issue #608
				rerr = ctx.NoContent(code)
			} else {
				rerr = ctx.Render(code, "error.html", map[string]interface{}{
					"Code":      code,
					"Message":   message,
					"FieldErrs": fieldErrs,
				})
			}
			if rerr != nil {
				ctx.Echo().Logger.Error(rerr)
			}
		}
	}
}
