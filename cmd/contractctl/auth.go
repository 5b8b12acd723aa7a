package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/contract_approval/backend/internal/googleauth"
)

func authCMD() *cobra.Command {
	var code string

	var cmd = &cobra.Command{
		Use:   "auth",
		Short: "Authorise Google Docs, Drive and Gmail access and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(false)
			if err != nil {
				return err
			}
			oc, err := googleauth.Config(cfg.GoogleCredentialsFile)
			if err != nil {
				return err
			}

			if code == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Open this link, grant access and paste the authorisation code:\n\n%s\n\ncode: ",
					oc.AuthCodeURL("contractctl", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			tok, err := oc.Exchange(context.Background(), code)
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}
			if err := googleauth.SaveToken(cfg.GoogleTokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", cfg.GoogleTokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorisation code (prompted when empty)")
	return cmd
}
