package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/codex-pipeline/internal/server"
)

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API's mutating routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			jwtCfg := cfg.JWT()
			if jwtCfg == nil {
				return fmt.Errorf("JWT secret is required (set JWT_SECRET or jwt_secret in the config file)")
			}
			if err := jwtCfg.Validate(); err != nil {
				return err
			}
			token, err := server.NewJWTService(jwtCfg).GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Operator name recorded in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
