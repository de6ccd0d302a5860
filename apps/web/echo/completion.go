package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mwalimu/darasa/core/completion"
)

type completionPages struct {
	service *completion.Service
}

func registerCompletionPages(app *echo.Echo, svc *completion.Service) {
	pages := completionPages{service: svc}

	// deliberately not behind requireAuth: an anonymous visitor with a valid
	// token is bounced to login and continues here after
	app.GET(completion.Path, pages.complete)
}

func (pages *completionPages) complete(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	auth := currentAuth(ctx)

	res, err := pages.service.Complete(ctx.Request().Context(), token, auth)
	switch err {
	case nil:
	case completion.ErrNotAuthenticated:
		return loginRedirect(ctx)
	case completion.ErrMissingToken, completion.ErrInvalidToken:
		return echo.NewHTTPError(http.StatusBadRequest, "this completion link is invalid or has expired")
	case completion.ErrWrongRole:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case completion.ErrNoValidClasses:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}

	return ctx.Render(http.StatusOK, "complete_result.html", map[string]interface{}{
		"NewlyCompleted":   res.NewlyCompleted,
		"AlreadyCompleted": res.AlreadyCompleted,
		"Errors":           res.Errors,
	})
}
