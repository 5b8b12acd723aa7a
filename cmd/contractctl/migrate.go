package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contract_approval/backend/internal/db"
)

func migrateCMD() *cobra.Command {
	var direction string
	var steps int

	var cmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the evaluation log schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			if err := db.Migrate(cfg.DatabaseURL, direction, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", direction)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
