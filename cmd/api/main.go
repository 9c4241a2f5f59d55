package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	_ "github.com/jhoicas/vigia-auth/docs" // Swagger docs
	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/jobs"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/memory"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/metrics"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/notify"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/ratelimit"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/session"
	httpRouter "github.com/jhoicas/vigia-auth/internal/interfaces/http"
	"github.com/jhoicas/vigia-auth/pkg/config"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// @title        VIGIA Auth API
// @version      1.0
// @description  Autenticación VIGIA: login, cadastro de empresa, cambio y redefinición de contraseña.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Almacenamiento: PostgreSQL o memoria (desarrollo y demos)
	var (
		users       repository.UserRepository
		companies   repository.CompanyRepository
		resetTokens repository.ResetTokenRepository
		txRunner    repository.TxRunner
		healthCheck func(context.Context) error
	)
	switch cfg.DB.Driver {
	case "memory":
		store := memory.New()
		users, companies, resetTokens, txRunner = store.Users(), store.Companies(), store.ResetTokens(), store
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
	default:
		migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString())
		if err != nil {
			logger.Err(log.Fatal(), err).Msg("inicializar migraciones")
		}
		if err := migrator.Up(); err != nil {
			logger.Err(log.Fatal(), err).Msg("aplicar migraciones")
		}
		_ = migrator.Close()

		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			logger.Err(log.Fatal(), err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
		companies = postgres.NewCompanyRepository(pool)
		resetTokens = postgres.NewResetTokenRepository(pool)
		txRunner = postgres.NewTxRunner(pool)
		healthCheck = pool.Ping
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	issuer := session.NewJWTIssuer(session.Config{
		Secret:          cfg.JWT.Secret,
		Issuer:          cfg.JWT.Issuer,
		ExpMinutes:      cfg.JWT.Expiration,
		RotationMinutes: cfg.JWT.RotationMinutes,
	})
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	policy := auth.PasswordPolicy{
		MinLength:     cfg.Auth.PasswordMinLength,
		MaxLength:     auth.DefaultPasswordPolicy().MaxLength,
		RequireLetter: cfg.Auth.PasswordRequireLetter,
		RequireDigit:  cfg.Auth.PasswordRequireDigit,
	}
	renderer := notify.Renderer{AppName: "VIGIA", ResetURL: cfg.Auth.ResetURL}
	mailer := jobs.NewMailer(cfg.SMTP, log)

	var (
		svcOpts      []auth.Option
		notifier     auth.Notifier
		mailNotifier *notify.MailNotifier
		worker       *jobs.Worker
	)
	if cfg.Redis.Enabled() {
		redisClient, err := ratelimit.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Err(log.Fatal(), err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
		svcOpts = append(svcOpts, auth.WithThrottle(
			ratelimit.NewRedisThrottle(redisClient, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginLockout),
		))

		redisOpts := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		queue := jobs.NewClient(redisOpts)
		defer queue.Close()
		notifier = notify.NewQueueNotifier(queue, renderer)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: sin bloqueo por intentos y correos enviados en línea")
		mailNotifier = notify.NewMailNotifier(mailer, renderer, log)
		notifier = mailNotifier
	}

	authSvc := auth.NewService(users, companies, txRunner, hasher, issuer, log, auth.Config{
		Policy:                  policy,
		ValidateCNPJCheckDigits: cfg.Auth.ValidateCNPJCheckDigits,
	}, svcOpts...)
	resetSvc := auth.NewResetService(users, resetTokens, txRunner, hasher, notifier, log, auth.ResetConfig{
		TTL:    cfg.Auth.ResetTokenTTL,
		Policy: policy,
	})

	if cfg.Redis.Enabled() {
		worker, err = jobs.NewWorker(jobs.WorkerConfig{
			RedisOpts: asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
			Logger:    log,
			Handlers: []jobs.TaskHandler{
				{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewMailHandler(mailer, log, m).Handle},
				{Type: jobs.TaskTypePurgeResetTokens, Handler: jobs.NewPurgeHandler(resetSvc, log, m).Handle},
			},
			Cron: []jobs.CronRegistration{
				{Spec: cfg.Jobs.PurgeCron, Task: jobs.NewPurgeResetTokensTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			},
		})
		if err != nil {
			logger.Err(log.Fatal(), err).Msg("inicializar worker")
		}
	}

	app := httpRouter.NewApp(httpRouter.RouterDeps{
		AppName:      cfg.App.Name,
		Auth:         authSvc,
		Reset:        resetSvc,
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
		Log:          log,
		Metrics:      m,
		Gatherer:     registry,
		HealthCheck:  healthCheck,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "VIGIA Auth API",
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	} else {
		g.Go(func() error {
			return purgeLoop(gctx, resetSvc, log)
		})
	}

	waitErr := g.Wait()
	if mailNotifier != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), notify.DefaultMailTimeout)
		if err := mailNotifier.Close(closeCtx); err != nil {
			logger.Err(log.Warn(), err).Msg("correos pendientes sin entregar al apagar")
		}
		cancel()
	}
	if err := waitErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Err(log.Error(), err).Msg("servidor finalizado con error")
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}

// purgeLoop limpia tokens expirados cada hora cuando no hay worker asynq.
func purgeLoop(ctx context.Context, purger jobs.TokenPurger, log *logger.Logger) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := purger.Purge(ctx, now); err != nil {
				logger.Err(log.Warn(), err).Msg("purga de tokens")
			}
		}
	}
}
