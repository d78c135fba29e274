package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/coursecatalog/catalog-api/docs"
	"github.com/coursecatalog/catalog-api/internal/api/handler"
	"github.com/coursecatalog/catalog-api/internal/api/middleware"
	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

// RouterDeps carries everything the HTTP layer needs. Infrastructure is
// wired in cmd; the router only sees ports.
type RouterDeps struct {
	Courses ports.CourseService
	Auth    ports.AuthService
	Sheets  handler.RowReader
	// MaxBatchRows caps one JSON batch; <= 0 means no limit.
	MaxBatchRows int
	JWTSecret    string
	Checks       []handler.DependencyCheck
	Logger       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddleware("catalog"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	courseHandler := handler.NewCourseHandler(d.Courses, d.Sheets, d.MaxBatchRows)
	auth := middleware.Auth(d.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Course routes ---
	v1 := e.Group("/v1", auth)
	v1.GET("/courses", courseHandler.List)
	v1.POST("/courses", courseHandler.Add)
	v1.DELETE("/courses", courseHandler.DeleteAll)
	v1.POST("/courses/batch", courseHandler.Batch)
	v1.POST("/courses/import", courseHandler.Import)
	v1.GET("/courses/:id", courseHandler.Get)
	v1.PATCH("/courses/:id", courseHandler.Update)
	v1.DELETE("/courses/:id", courseHandler.Delete)

	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.POST("/users/:id/reconcile", courseHandler.Reconcile)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks...)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger emits one structured entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Error != nil:
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
