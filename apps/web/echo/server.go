package echoweb

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/class"
	"github.com/mwalimu/darasa/core/completion"
	"github.com/mwalimu/darasa/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger
		Store  sessions.Store

		UserSvc       *user.Service
		ClassSvc      *class.Service
		CompletionSvc *completion.Service
		QRSvc         core.QRService
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.opts.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.opts.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(session.Middleware(s.opts.Store))
	s.app.Use(loadAuth)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Renderer = newRenderer()
	s.app.Debug = debug

	registerUserPages(s.app, s.opts.UserSvc, s.opts.CompletionSvc)
	registerClassPages(s.app, s.opts.Conf, s.opts.ClassSvc, s.opts.CompletionSvc, s.opts.QRSvc)
	registerCompletionPages(s.app, s.opts.CompletionSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
