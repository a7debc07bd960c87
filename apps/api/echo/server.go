package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/rs/cors"
	"go.uber.org/dig"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/core/exam"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
)

type (
	// ServerDeps are the dependencies of the API server; injected by the dig container.
	ServerDeps struct {
		dig.In

		Conf            *core.Config
		Logger          core.Logger
		Verifier        core.IdentityVerifier
		UserSvc         user.ServiceInterface
		CatalogSvc      catalog.ServiceInterface
		SubscriptionSvc subscription.ServiceInterface
		ExamSvc         exam.ServiceInterface
		Validate        *validator.Validate
		Translator      ut.Translator
	}

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HideBanner = conf.TestMode

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(echo.WrapMiddleware(newCORS(conf).Handler))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", health)

	v1 := s.app.Group("/v1", authMiddleware(s.deps.Verifier, s.deps.UserSvc))

	registerUserAPI(v1, s.deps.UserSvc, s.deps.Validate)
	registerCatalogAPI(v1, s.deps.CatalogSvc, s.deps.Validate)
	registerExamAPI(v1, s.deps.ExamSvc, s.deps.Validate)
	registerSubscriptionAPI(v1, s.deps.SubscriptionSvc, s.deps.Validate)
}

// newCORS allows the frontend to call the API with credentials.
func newCORS(conf *core.Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{conf.FrontendBaseURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
}

func (s *Server) Start() {
	s.errors <- s.app.Start(s.deps.Conf.Server.Address)
}

// Errors is notified when the server stops listening.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal is notified on SIGINT, SIGTERM or when an handler hits a shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
