package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contract_approval/backend/internal/policy"
)

func policyCMD() *cobra.Command {
	var format string
	var file string

	var cmd = &cobra.Command{
		Use:   "policy",
		Short: "Print the approval matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(false)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.PolicyFile
			}
			f, err := policy.ParseFormat(format)
			if err != nil {
				return err
			}
			catalog, err := policy.Load(file)
			if err != nil {
				return err
			}
			out, err := catalog.Render(f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown, structured or compact")
	cmd.Flags().StringVar(&file, "file", "", "approval matrix file (default POLICY_FILE)")
	return cmd
}
