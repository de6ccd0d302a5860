package echoweb

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mwalimu/darasa/core/completion"
	"github.com/mwalimu/darasa/core/user"
)

type userPages struct {
	service       *user.Service
	completionSvc *completion.Service
}

func registerUserPages(app *echo.Echo, svc *user.Service, cplSvc *completion.Service) {
	pages := userPages{service: svc, completionSvc: cplSvc}

	app.GET("/", pages.dashboard, requireAuth)
	app.GET("/login", pages.loginForm)
	app.POST("/login", pages.login)
	app.GET("/logout", pages.logout)
	app.GET("/register", pages.registerForm)
	app.POST("/register", pages.register)
	app.GET("/verify", pages.verify)
	app.GET("/account", pages.account, requireAuth)
	app.POST("/account", pages.accountUpdate, requireAuth)
	app.GET("/my-completions", pages.myCompletions, requireAuth)
}

// Handlers

func (pages *userPages) dashboard(ctx echo.Context) error {
	auth := currentAuth(ctx)

	usr, err := pages.service.GetByID(ctx.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	completions, err := pages.completionSvc.QueryForUser(ctx.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}

	return ctx.Render(http.StatusOK, "dashboard.html", map[string]interface{}{
		"User":        usr,
		"Completions": completions,
		"Verified":    usr.IsVerified(),
	})
}

func (pages *userPages) loginForm(ctx echo.Context) error {
	if currentAuth(ctx).Authenticated {
		return ctx.Redirect(http.StatusFound, "/")
	}
	return ctx.Render(http.StatusOK, "login.html", map[string]interface{}{
		"Next":  ctx.QueryParam("next"),
		"Email": "",
	})
}

func (pages *userPages) login(ctx echo.Context) error {
	email := ctx.FormValue("email")
	pwd := ctx.FormValue("password")
	next := ctx.FormValue("next")

	usr, err := pages.service.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		if err == user.ErrNotFound {
			return ctx.Render(http.StatusBadRequest, "login.html", map[string]interface{}{
				"Error": "invalid email or password",
				"Email": email,
				"Next":  next,
			})
		}
		return err
	}
	if err = logIn(ctx, usr); err != nil {
		return err
	}

	if next == "" || !strings.HasPrefix(next, "/") {
		// only relative continuations; anything else is an open redirect
		next = "/"
	}
	return ctx.Redirect(http.StatusFound, next)
}

func (pages *userPages) logout(ctx echo.Context) error {
	if err := logOut(ctx); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, "/login")
}

func (pages *userPages) registerForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "register.html", map[string]interface{}{
		"Name":  "",
		"Email": "",
	})
}

func (pages *userPages) register(ctx echo.Context) error {
	nu := user.NewUser{
		Name:            ctx.FormValue("name"),
		Email:           ctx.FormValue("email"),
		Password:        ctx.FormValue("password"),
		PasswordConfirm: ctx.FormValue("password_confirm"),
	}
	if err := nu.Validate(pages.service); err != nil {
		if fieldErrs := fieldErrors(err); fieldErrs != nil {
			return ctx.Render(http.StatusBadRequest, "register.html", map[string]interface{}{
				"FieldErrs": fieldErrs,
				"Name":      nu.Name,
				"Email":     nu.Email,
			})
		}
		return err
	}

	usr, err := pages.service.Create(ctx.Request().Context(), nu)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusCreated, "registered.html", map[string]interface{}{
		"User": usr,
	})
}

func (pages *userPages) verify(ctx echo.Context) error {
	vu := user.VerifyUser{
		UID:   ctx.QueryParam("uid"),
		Token: ctx.QueryParam("token"),
	}
	if err := vu.Validate(); err != nil {
		return err
	}

	usr, err := pages.service.Verify(ctx.Request().Context(), vu)
	if err != nil {
		// one generic failure; the caller learns nothing about why
		return ctx.Render(http.StatusBadRequest, "verify.html", map[string]interface{}{
			"Error": "this verification link is invalid or has expired",
		})
	}
	return ctx.Render(http.StatusOK, "verify.html", map[string]interface{}{
		"User": usr,
	})
}

func (pages *userPages) account(ctx echo.Context) error {
	usr, err := pages.service.GetByID(ctx.Request().Context(), currentAuth(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "account.html", map[string]interface{}{
		"Name":  usr.Name,
		"Email": usr.Email,
	})
}

func (pages *userPages) accountUpdate(ctx echo.Context) error {
	auth := currentAuth(ctx)

	orig, err := pages.service.GetByID(ctx.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{
		Name:            ctx.FormValue("name"),
		Email:           ctx.FormValue("email"),
		Password:        ctx.FormValue("password"),
		PasswordConfirm: ctx.FormValue("password_confirm"),
	}
	if err = uu.Validate(orig, pages.service); err != nil {
		if fieldErrs := fieldErrors(err); fieldErrs != nil {
			return ctx.Render(http.StatusBadRequest, "account.html", map[string]interface{}{
				"FieldErrs": fieldErrs,
				"Name":      uu.Name,
				"Email":     uu.Email,
			})
		}
		return err
	}

	usr, err := pages.service.Update(ctx.Request().Context(), auth.UserID, uu)
	if err != nil {
		return err
	}
	// the session carries name and email; refresh it
	if err = logIn(ctx, usr); err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "account.html", map[string]interface{}{
		"Name":    usr.Name,
		"Email":   usr.Email,
		"Updated": true,
	})
}

func (pages *userPages) myCompletions(ctx echo.Context) error {
	auth := currentAuth(ctx)

	completions, err := pages.completionSvc.QueryForUser(ctx.Request().Context(), auth.UserID)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "my_completions.html", map[string]interface{}{
		"Completions": completions,
	})
}
