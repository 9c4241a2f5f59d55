package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/application/dto"
	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/metrics"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName      string
	Auth         *auth.Service
	Reset        *auth.ResetService
	JWTSecret    string
	JWTIssuer    string
	Log          *logger.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer // nil: sin /metrics
	HealthCheck  func(ctx context.Context) error
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp crea la app Fiber con middlewares comunes, /health, /metrics y las rutas de la API.
func NewApp(deps RouterDeps) *fiber.App {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	app := fiber.New(fiber.Config{
		AppName:      deps.AppName,
		ReadTimeout:  deps.ReadTimeout,
		WriteTimeout: deps.WriteTimeout,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: errorHandler(deps.Log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metricsMiddleware(deps.Metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.UserContext()); err != nil {
				logger.Err(deps.Log.Warn(), err).Msg("health check")
				c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.AppName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.Auth, deps.Reset, deps.Log, deps.Metrics)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Get("/cnpj/:cnpj", authHandler.CNPJAvailability)
	authGroup.Post("/password/reset/request", authHandler.RequestReset)
	authGroup.Post("/password/reset/consume", authHandler.ConsumeReset)

	var sessions SessionChecker
	if deps.Auth != nil {
		sessions = deps.Auth
	}
	requireToken := AuthMiddleware(deps.JWTSecret, deps.JWTIssuer, sessions)

	// Cambio de contraseña: sesión o token de rotación
	authGroup.Post("/password/change", requireToken, authHandler.ChangePassword)

	// Rutas protegidas (requieren sesión completa)
	authGroup.Get("/me", requireToken, RequireSession(), authHandler.Me)

	admin := api.Group("/admin", requireToken, RequireSession(), RequireRole(entity.RoleAdmin))
	adminHandler := NewAdminHandler(deps.Auth, deps.Log)
	admin.Post("/users/temporary-password", adminHandler.IssueTemporaryPassword)
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
		}
		logger.Err(log.Error(), err).Str("path", c.Path()).Msg("error no manejado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: domain.CodeInternal, Message: "error interno"})
	}
}

func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.ObserveHTTP(c.Method(), route, status, time.Since(start))
		return err
	}
}
