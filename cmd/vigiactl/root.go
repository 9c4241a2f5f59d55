package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
	"github.com/jhoicas/vigia-auth/pkg/config"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// deps puntos de inyección de la CLI (tests).
type deps struct {
	loadConfig func() (*config.Config, error)
	openPool   func(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		openPool:   postgres.NewPool,
	}
}

// NewRootCmd crea el comando raíz de vigiactl.
func NewRootCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vigiactl",
		Short: "vigiactl - operación de vigia-auth",
		Long: `vigiactl administra la base de vigia-auth: migraciones, contraseñas
temporales de usuarios y limpieza de tokens de redefinición.
La configuración se lee de las mismas variables de entorno que la API.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewMigrateCmd(d))
	cmd.AddCommand(NewUsersCmd(d))
	cmd.AddCommand(NewTokensCmd(d))

	return cmd
}

// loadPostgresConfig carga la configuración y exige el driver postgres;
// con el store en memoria los comandos no tendrían efecto.
func loadPostgresConfig(d deps) (*config.Config, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}
	if cfg.DB.Driver != "postgres" {
		return nil, oops.Code("STORE_DRIVER_UNSUPPORTED").
			With("driver", cfg.DB.Driver).
			Errorf("vigiactl requiere STORE_DRIVER=postgres")
	}
	return cfg, nil
}

func cliLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
}
