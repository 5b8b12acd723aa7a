package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/contract_approval/backend/internal/app"
	"github.com/contract_approval/backend/internal/models"
)

func chatCMD() *cobra.Command {
	var sessionID string
	var verbose bool

	var cmd = &cobra.Command{
		Use:   "chat <message>",
		Short: "Run one conversation turn against the configured collaborators",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(verbose)
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			defer a.Locker.Lock(sessionID)()
			state, err := a.Sessions.Load(ctx, sessionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			next := a.Assistant.Turn(ctx, sessionID, strings.Join(args, " "), state, func(e models.Event) {
				if e.Type == models.EventProgress {
					fmt.Fprint(out, e.Text)
				}
			})
			fmt.Fprintln(out)
			return a.Sessions.Save(ctx, sessionID, next)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id whose context is continued")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	return cmd
}
