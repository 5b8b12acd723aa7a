package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/contract_approval/backend/internal/history"
)

func customerCMD() *cobra.Command {
	var file string
	var ledger string

	var cmd = &cobra.Command{
		Use:   "customer",
		Short: "Identify the customer in a contract text and summarise their history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			if ledger == "" {
				ledger = cfg.LedgerFile
			}

			var text []byte
			if file == "" || file == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}

			name, ok := history.ExtractCustomerName(string(text))
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Customer could not be identified.")
				return nil
			}
			h := history.Summarize(name, history.LoadLedger(ledger, logger))
			fmt.Fprintln(cmd.OutOrStdout(), history.ContextBlock(h))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "contract text file (default stdin)")
	cmd.Flags().StringVar(&ledger, "ledger", "", "contract history file (default LEDGER_FILE)")
	return cmd
}
