package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
)

// NewMigrateCmd crea el subcomando migrate con up, down y version.
func NewMigrateCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de PostgreSQL",
		Long:  `Aplica, revierte o consulta las migraciones embebidas en el binario.`,
	}

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revertir todas las migraciones (borra los datos)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down borra todas las tablas; repetir con --yes")
			}
			return withMigrator(d, func(m *postgres.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migraciones revertidas")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirmar la operación destructiva")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Aplicar migraciones pendientes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(d, func(m *postgres.Migrator) error {
					cmd.Println("Aplicando migraciones...")
					if err := m.Up(); err != nil {
						return err
					}
					cmd.Println("Migraciones aplicadas")
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Mostrar la versión de esquema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(d, func(m *postgres.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					cmd.Printf("versión: %d dirty: %t\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(d deps, fn func(*postgres.Migrator) error) error {
	cfg, err := loadPostgresConfig(d)
	if err != nil {
		return err
	}
	m, err := postgres.NewMigrator(cfg.DB.ConnectionString())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer m.Close()
	return fn(m)
}
