package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/codex-pipeline/internal/batch"
	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/observability"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// batchOutput is the JSON written by the batch command
type batchOutput struct {
	Batch *types.BatchJob         `json:"batch"`
	Units []*types.ProcessingUnit `json:"units"`
}

func newBatchCmd(opts *globalOptions) *cobra.Command {
	var (
		codexID     string
		concurrency int
		outFile     string
		verbose     bool
	)
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Extract records from many documents as one batch",
		Long:  "Read every file, then run extraction over them in chunks of --concurrency units. Progress is reported on stderr.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log, err := commandLogger(cfg, false)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			a, err := newApp(ctx, cfg, log, true)
			if err != nil {
				return err
			}
			defer a.Close()

			texts := make([]string, 0, len(args))
			for _, path := range args {
				doc, _, err := ingestion.IngestFromFile(ctx, a.readers, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				texts = append(texts, doc.Text)
			}

			job, err := a.svc.RunBatch(ctx, texts, codexID, concurrency, func(ev batch.ProgressEvent) {
				fmt.Fprintf(os.Stderr, "batch %s: %d/%d %s\n", ev.BatchID, ev.CompletedUnits, ev.TotalUnits, ev.Status)
			})
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}
			units, err := a.svc.ListBatchUnits(ctx, job.ID)
			if err != nil {
				return err
			}
			if verbose {
				observability.NewPrinter(os.Stderr).PrintBatch(job, units)
			}
			return writeJSON(cmd.OutOrStdout(), outFile, batchOutput{Batch: job, Units: units})
		},
	}
	cmd.Flags().StringVar(&codexID, "codex", codex.JobCardV1, "Codex ID applied to every document")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Units processed at once (default from config)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Path to output JSON file (default stdout)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print a batch summary to stderr")
	return cmd
}
