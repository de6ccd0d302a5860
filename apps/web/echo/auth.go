package echoweb

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/user"
)

const (
	sessionName = "darasa_session"
	authCtxKey  = "auth"
)

// loadAuth rebuilds the caller's identity from the session cookie and stashes
// it in the request context. Every handler downstream reads identity from
// there, never from the session directly.
func loadAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := session.Get(sessionName, ctx)
		if err == nil {
			if id, ok := sess.Values["user_id"].(string); ok && id != "" {
				name, _ := sess.Values["name"].(string)
				email, _ := sess.Values["email"].(string)
				roles, _ := sess.Values["roles"].(string)
				auth := core.AuthContext{
					UserID:        id,
					Name:          name,
					Email:         email,
					Authenticated: true,
				}
				if roles != "" {
					auth.Roles = strings.Split(roles, ",")
				}
				ctx.Set(authCtxKey, auth)
			}
		}
		return next(ctx)
	}
}

func currentAuth(ctx echo.Context) core.AuthContext {
	if auth, ok := ctx.Get(authCtxKey).(core.AuthContext); ok {
		return auth
	}
	return core.AuthContext{}
}

// logIn persists the user's identity in the session.
func logIn(ctx echo.Context, usr user.User) error {
	sess, err := session.Get(sessionName, ctx)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
	}
	sess.Values["user_id"] = usr.ID
	sess.Values["name"] = usr.Name
	sess.Values["email"] = usr.Email
	sess.Values["roles"] = strings.Join(usr.Roles, ",")
	return sess.Save(ctx.Request(), ctx.Response())
}

// logOut drops the session.
func logOut(ctx echo.Context) error {
	sess, err := session.Get(sessionName, ctx)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	return sess.Save(ctx.Request(), ctx.Response())
}

// loginRedirect sends an unauthenticated caller to the login page; next
// brings them back here once they are in.
func loginRedirect(ctx echo.Context) error {
	q := make(url.Values)
	q.Set("next", ctx.Request().RequestURI)
	return ctx.Redirect(http.StatusFound, "/login?"+q.Encode())
}

// requireAuth gates a route on an authenticated session.
func requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !currentAuth(ctx).Authenticated {
			return loginRedirect(ctx)
		}
		return next(ctx)
	}
}

// requireRoles gates a route on the caller holding one of the given roles.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := currentAuth(ctx)
			if !auth.Authenticated {
				return loginRedirect(ctx)
			}
			for _, role := range roles {
				if auth.HasRole(role) {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}
