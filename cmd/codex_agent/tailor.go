package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/observability"
	"github.com/jonathan/codex-pipeline/internal/tailoring"
	"github.com/jonathan/codex-pipeline/internal/types"
)

func newTailorCmd(opts *globalOptions) *cobra.Command {
	var (
		resumeFile     string
		jobFile        string
		resumeTextFile string
		tailorOpts     tailoring.Options
		outFile        string
		verbose        bool
	)
	cmd := &cobra.Command{
		Use:   "tailor",
		Short: "Tailor an extracted résumé to an extracted job record",
		Long:  "Read a résumé record and a job record (either bare structured records or units written by extract) and produce a tailored bundle with coverage, diff and ATS report.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resumeFile == "" || jobFile == "" {
				return fmt.Errorf("--resume and --job are required")
			}
			if tailorOpts.CoverageThreshold < 0 || tailorOpts.CoverageThreshold > 1 {
				return fmt.Errorf("--threshold must be between 0 and 1")
			}
			resume, err := readRecord(resumeFile)
			if err != nil {
				return err
			}
			job, err := readRecord(jobFile)
			if err != nil {
				return err
			}
			if resumeTextFile != "" {
				text, err := os.ReadFile(resumeTextFile)
				if err != nil {
					return fmt.Errorf("failed to read résumé text: %w", err)
				}
				tailorOpts.ResumeText = string(text)
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

			result := a.svc.Tailor(ctx, resume, job, tailorOpts)
			if verbose {
				observability.NewPrinter(os.Stderr).PrintTailorResult(result)
			}
			if err := writeJSON(cmd.OutOrStdout(), outFile, result); err != nil {
				return err
			}
			if !result.OK {
				return fmt.Errorf("tailoring rejected with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&resumeFile, "resume", "", "Résumé record or unit JSON file")
	cmd.Flags().StringVar(&jobFile, "job", "", "Job record or unit JSON file")
	cmd.Flags().StringVar(&resumeTextFile, "resume-text", "", "Source résumé text that coverage quotes are checked against")
	cmd.Flags().StringVar(&tailorOpts.CodexID, "codex", codex.ResumeTailorV1, "Transformation codex ID")
	cmd.Flags().BoolVar(&tailorOpts.CoverLetter, "cover-letter", false, "Also write a cover letter")
	cmd.Flags().BoolVar(&tailorOpts.Rationale, "rationale", false, "Explain the main changes")
	cmd.Flags().Float64Var(&tailorOpts.CoverageThreshold, "threshold", 0, "Minimum confidence for a coverage entry (0-1)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Path to output JSON file (default stdout)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print a summary to stderr")
	return cmd
}

// readRecord loads a structured record, unwrapping a unit when the file holds one
func readRecord(path string) (*types.StructuredRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if raw, ok := probe["structured_record"]; ok {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("%s: unit has no structured record", path)
		}
		data = raw
	}

	var rec types.StructuredRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record in %s: %w", path, err)
	}
	if len(rec.Fields) == 0 {
		return nil, fmt.Errorf("%s: record has no fields", path)
	}
	return &rec, nil
}
