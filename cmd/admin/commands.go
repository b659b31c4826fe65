package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/storage"
	"github.com/jhoicas/invoicely-api/pkg/config"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

type openFunc func(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage.Repositories, error)

func newRootCmd(cfg *config.Config, log *logger.Logger, open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Herramientas de operación de Invoicely",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSetTierCmd(cfg, log, open), newMigrateCmd(cfg, log, open))
	return root
}

func newSetTierCmd(cfg *config.Config, log *logger.Logger, open openFunc) *cobra.Command {
	var email, tier string
	cmd := &cobra.Command{
		Use:   "set-tier",
		Short: "Cambia el plan de un usuario (free | pro) sin pasar por la pasarela",
		Example: `  admin set-tier --email ana@example.com --tier pro
  admin set-tier --email ana@example.com --tier free`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer repos.Close()

			uc := billing.NewSubscriptionUseCase(billing.SubscriptionDeps{Users: repos.Users, Log: log})
			user, err := uc.SetTier(cmd.Context(), email, entity.Tier(tier))
			if err != nil {
				return fmt.Errorf("set-tier %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) ahora está en el plan %s\n", user.Email, user.ID, user.SubscriptionStatus)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email del usuario")
	cmd.Flags().StringVar(&tier, "tier", "", "plan destino: free | pro")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

func newMigrateCmd(cfg *config.Config, log *logger.Logger, open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica migraciones (postgres) o crea índices (mongo) y termina",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			repos.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "almacenamiento %q al día\n", cfg.Store.Driver)
			return nil
		},
	}
}
