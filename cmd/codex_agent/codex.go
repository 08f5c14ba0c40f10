package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/schemas"
)

// codexSchemaPath is checked before a codex is decoded, when it can be found
const codexSchemaPath = "schemas/codex.schema.json"

func newCodexCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codex",
		Short: "Inspect and publish codexes",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered codexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newOfflineApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			codexes, err := a.svc.Codexes().List(commandContext(cmd))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tKIND\tDESCRIPTION")
			for _, c := range codexes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Version, c.Kind, c.Description)
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a codex as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newOfflineApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.Codexes().Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", c)
		},
	}

	putCmd := &cobra.Command{
		Use:   "put FILE",
		Short: "Validate and publish a codex",
		Long:  "Validate a codex file and publish it. Without --db-url the codex only lives for this invocation, which makes put a validity check.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath := schemas.ResolveSchemaPath(codexSchemaPath); schemaPath != "" {
				if err := schemas.ValidateJSON(schemaPath, args[0]); err != nil {
					return err
				}
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read codex file: %w", err)
			}
			c, err := codex.Decode(data)
			if err != nil {
				return err
			}

			a, err := newOfflineApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.svc.Codexes().Put(commandContext(cmd), c)
			if err != nil {
				return err
			}
			hash, err := codex.ContentHash(stored)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s@%s (%s)\n", stored.ID, stored.Version, hash[:12])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, putCmd)
	return cmd
}

// newOfflineApp wires the store and registry without a model client
func newOfflineApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := commandLogger(cfg, false)
	if err != nil {
		return nil, err
	}
	return newApp(commandContext(cmd), cfg, log, false)
}
