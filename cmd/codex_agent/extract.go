package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/observability"
	"github.com/jonathan/codex-pipeline/internal/types"
)

func newExtractCmd(opts *globalOptions) *cobra.Command {
	var (
		inputFile string
		inputURL  string
		codexID   string
		outFile   string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a structured record from one document",
		Long:  "Run the extraction passes of a codex over a local file (text, markdown, HTML, PDF, DOCX, image) or a job posting URL and write the finished unit as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (inputFile == "") == (inputURL == "") {
				return fmt.Errorf("exactly one of --in or --url is required")
			}
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

			var (
				unit   *types.ProcessingUnit
				doc    *ingestion.Document
				source = inputFile
			)
			if inputURL != "" {
				source = inputURL
				unit, doc, err = a.svc.ExtractURL(ctx, inputURL, codexID)
			} else {
				data, readErr := os.ReadFile(inputFile)
				if readErr != nil {
					return fmt.Errorf("failed to read input file: %w", readErr)
				}
				unit, doc, err = a.svc.ExtractDocument(ctx, data, ingestion.MimeFromPath(inputFile), codexID)
			}
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}

			if verbose {
				if doc != nil {
					meta := ingestion.NewMetadata(doc, source)
					fmt.Fprintf(os.Stderr, "Read %s: %s, %d page(s), sha256 %s\n", meta.Source, meta.Kind, meta.PageCount, meta.Hash[:12])
				}
				observability.NewPrinter(os.Stderr).PrintUnit(unit)
			}
			if err := writeJSON(cmd.OutOrStdout(), outFile, unit); err != nil {
				return err
			}
			if unit.Status != types.UnitCompleted {
				return fmt.Errorf("unit %s finished with status %s", unit.ID, unit.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputFile, "in", "i", "", "Path to the document")
	cmd.Flags().StringVar(&inputURL, "url", "", "URL of a job posting")
	cmd.Flags().StringVar(&codexID, "codex", codex.JobCardV1, "Codex ID")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Path to output JSON file (default stdout)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print a summary of the record to stderr")
	return cmd
}

// writeJSON writes v indented to path, or to w when path is empty
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
