package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/session"
)

// NewUsersCmd crea el subcomando users.
func NewUsersCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Operaciones sobre usuarios",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "temp-password <email>",
		Short: "Emitir una contraseña temporal",
		Long: `Genera una contraseña temporal para el usuario y la imprime una sola vez.
En el próximo login el usuario deberá cambiarla.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPostgresConfig(d)
			if err != nil {
				return err
			}
			log := cliLogger(cfg)
			ctx := cmd.Context()

			pool, err := d.openPool(ctx, cfg.DB, log)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()

			svc := auth.NewService(
				postgres.NewUserRepository(pool),
				postgres.NewCompanyRepository(pool),
				postgres.NewTxRunner(pool),
				auth.NewBcryptHasher(cfg.Auth.BcryptCost),
				session.NewJWTIssuer(session.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
				log,
				auth.Config{Policy: auth.DefaultPasswordPolicy()},
			)
			plain, err := svc.IssueTemporaryPassword(ctx, args[0])
			if err != nil {
				return oops.Code("TEMP_PASSWORD_FAILED").With("email", args[0]).Wrap(err)
			}
			cmd.Printf("contraseña temporal: %s\n", plain)
			return nil
		},
	})
	return cmd
}
