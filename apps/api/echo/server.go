package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

type (
	Options struct {
		Config         *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		SchoolSvc     school.Service
		StudentSvc    student.Service
		AttendanceSvc attendance.Service
		ReportSvc     report.Service
	}

	Server struct {
		opts     *Options
		app      *echo.Echo
		jwt      echo.MiddlewareFunc
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Config

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.jwt = middleware.JWTWithConfig(newJWTConfig(conf))

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	registerAttendanceAPI(v1, s.jwt, s.opts)
	registerStudentAPI(v1, s.jwt, s.opts)
	registerSchoolAPI(v1, s.jwt, s.opts)
	registerReportAPI(v1, s.jwt, s.opts)
}

// Start listens on the configured address. Listener failures are sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Config.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the Server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Config.AppName+" API!")
}
