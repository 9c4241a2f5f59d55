package main

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/jobs"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
)

// NewTokensCmd crea el subcomando tokens.
func NewTokensCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Tokens de redefinición de contraseña",
	}

	var enqueue bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Eliminar tokens expirados",
		Long: `Elimina los tokens de redefinición vencidos. Con --enqueue la limpieza
se encola en el worker en lugar de ejecutarse aquí.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadPostgresConfig(d)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if enqueue {
				if !cfg.Redis.Enabled() {
					return oops.Code("CONFIG_INVALID").Errorf("--enqueue requiere REDIS_ADDR")
				}
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				info, err := client.EnqueuePurge(ctx)
				if err != nil {
					return oops.Code("ENQUEUE_FAILED").Wrap(err)
				}
				cmd.Printf("tarea encolada: %s\n", info.ID)
				return nil
			}

			log := cliLogger(cfg)
			pool, err := d.openPool(ctx, cfg.DB, log)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()

			reset := auth.NewResetService(
				postgres.NewUserRepository(pool),
				postgres.NewResetTokenRepository(pool),
				postgres.NewTxRunner(pool),
				auth.NewBcryptHasher(cfg.Auth.BcryptCost),
				nil,
				log,
				auth.ResetConfig{TTL: cfg.Auth.ResetTokenTTL},
			)
			n, err := reset.Purge(ctx, time.Now())
			if err != nil {
				return oops.Code("PURGE_FAILED").Wrap(err)
			}
			cmd.Printf("tokens eliminados: %d\n", n)
			return nil
		},
	}
	purge.Flags().BoolVar(&enqueue, "enqueue", false, "encolar la limpieza en el worker asynq")

	cmd.AddCommand(purge)
	return cmd
}
