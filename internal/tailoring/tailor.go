// Package tailoring rewrites a structured résumé for a structured job record
// while keeping employment facts fixed.
package tailoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/evidence"
	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/prompts"
	"github.com/jonathan/codex-pipeline/internal/schemas"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// DefaultCoverageThreshold is the confidence below which coverage is warned about
const DefaultCoverageThreshold = 0.6

// User-facing errors in a failed TailorResult
const (
	MsgCodexUnavailable = "tailoring codex is unavailable"
	MsgInvalidInput     = "résumé record is not usable for tailoring"
	MsgRewriteFailed    = "résumé rewrite failed; please retry later"
)

// Options controls one tailoring run
type Options struct {
	CodexID           string  `json:"codex_id,omitempty"`
	CoverLetter       bool    `json:"cover_letter,omitempty"`
	Rationale         bool    `json:"rationale,omitempty"`
	CoverageThreshold float64 `json:"coverage_threshold,omitempty"`
	// ResumeText is the source document the résumé record was extracted
	// from. Coverage quotes and numbers are checked against it; when empty
	// the flattened résumé record is used.
	ResumeText string `json:"resume_text,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.CodexID == "" {
		o.CodexID = codex.ResumeTailorV1
	}
	if o.CoverageThreshold <= 0 || o.CoverageThreshold > 1 {
		o.CoverageThreshold = DefaultCoverageThreshold
	}
	return o
}

// CodexResolver looks up the transformation codex
type CodexResolver interface {
	Resolve(ctx context.Context, id string) (*types.Codex, error)
}

// Tailorer runs align, rewrite, finalize and the optional cover letter and
// rationale passes
type Tailorer struct {
	codexes CodexResolver
	gateway llm.Gateway
	metrics *metrics.Metrics
	logger  *zap.Logger

	schemaMu sync.Mutex
	schemas  map[string]*schemas.Schema
}

// NewTailorer wires a tailorer. m and log may be nil.
func NewTailorer(codexes CodexResolver, gateway llm.Gateway, m *metrics.Metrics, log *zap.Logger) *Tailorer {
	return &Tailorer{
		codexes: codexes,
		gateway: gateway,
		metrics: m,
		logger:  logger.OrNop(log),
		schemas: make(map[string]*schemas.Schema),
	}
}

type alignment struct {
	Coverage      []types.CoverageMatrixEntry `json:"coverage"`
	CoverageScore float64                     `json:"coverage_score"`
}

type rewritten struct {
	TailoredResume *types.Resume `json:"tailored_resume"`
}

type coverLetter struct {
	CoverLetter string `json:"cover_letter"`
}

type rationales struct {
	Rationales []string `json:"rationales"`
}

// Tailor never returns a nil result. OK is false, with generic messages in
// Errors, when the résumé could not be rewritten or the rewrite changed an
// immutable fact.
func (t *Tailorer) Tailor(ctx context.Context, resume, job *types.StructuredRecord, opts Options) *types.TailorResult {
	opts = opts.withDefaults()
	log := t.logger.With(zap.String(logger.FieldCodexID, opts.CodexID))
	started := time.Now()

	result := t.tailor(ctx, resume, job, opts, log)
	t.metrics.TailorFinished(result.OK)
	if result.OK {
		log.Info("tailoring completed",
			zap.Int("warnings", len(result.Bundle.Warnings)),
			zap.Float64("coverage_score", result.Bundle.CoverageScore),
			zap.Float64("keyword_coverage", result.Bundle.ATSReport.KeywordCoverage),
			zap.Duration("duration", time.Since(started)))
	}
	return result
}

func (t *Tailorer) tailor(ctx context.Context, resumeRecord, job *types.StructuredRecord, opts Options, log *zap.Logger) *types.TailorResult {
	c, err := t.codexes.Resolve(ctx, opts.CodexID)
	if err == nil && c.Kind != types.CodexKindTransformation {
		err = fmt.Errorf("codex %q has kind %s, not transformation", c.ID, c.Kind)
	}
	if err != nil {
		log.Warn("tailoring codex unavailable", zap.Error(err))
		return failed(MsgCodexUnavailable)
	}

	source, err := ResumeFromRecord(resumeRecord)
	if err != nil {
		log.Warn("résumé record rejected", zap.Error(err))
		return failed(MsgInvalidInput)
	}
	var jobFields map[string]any
	if job != nil {
		jobFields = job.Fields
	}
	sourceText := opts.ResumeText
	if strings.TrimSpace(sourceText) == "" {
		sourceText = resumeText(source)
	}

	data := codex.PromptData(c)
	bundle := &types.TailoredBundle{Coverage: []types.CoverageMatrixEntry{}, Warnings: []string{}}

	// align
	var aligned alignment
	err = t.pass(ctx, log, llm.Request{
		Name:    types.PromptAlign,
		System:  prompts.Format(c.Prompts[types.PromptAlign], data),
		Payload: map[string]any{"resume": source, "job": jobFields},
		Shape:   llm.ShapeObject,
		Tier:    llm.TierStandard,
	}, &aligned)
	if err != nil {
		log.Warn("align pass failed", zap.Error(err))
		bundle.Warnings = append(bundle.Warnings, "coverage analysis unavailable")
	} else {
		kept, dropped := evidence.FilterCoverage(aligned.Coverage, sourceText)
		if dropped > 0 {
			t.metrics.EvidenceDroppedAdd(dropped)
			bundle.Warnings = append(bundle.Warnings,
				fmt.Sprintf("%d coverage entries cited text not found in the résumé and were removed", dropped))
		}
		for i := range kept {
			kept[i].Confidence = clamp(kept[i].Confidence)
		}
		bundle.Coverage = kept
		bundle.CoverageScore = CoverageScore(kept)
	}

	// rewrite
	var out rewritten
	err = t.pass(ctx, log, llm.Request{
		Name:   types.PromptRewrite,
		System: prompts.Format(c.Prompts[types.PromptRewrite], data),
		Payload: map[string]any{
			"resume":   source,
			"job":      jobFields,
			"coverage": bundle.Coverage,
		},
		Shape: llm.ShapeObject,
		Tier:  llm.TierStandard,
	}, &out)
	if err == nil && out.TailoredResume == nil {
		err = &llm.GatewayError{Kind: llm.KindMalformed, Request: types.PromptRewrite, Message: `"tailored_resume" is missing`}
	}
	if err != nil {
		log.Warn("rewrite pass failed", zap.Error(err))
		return failed(MsgRewriteFailed)
	}
	tailored := out.TailoredResume

	if errs := t.finalize(bundle, c, source, tailored, job, sourceText, opts, log); len(errs) > 0 {
		return &types.TailorResult{OK: false, Errors: errs}
	}

	if opts.CoverLetter {
		var letter coverLetter
		err := t.pass(ctx, log, llm.Request{
			Name:    types.PromptCoverLetter,
			System:  prompts.Format(c.Prompts[types.PromptCoverLetter], data),
			Payload: map[string]any{"tailored_resume": tailored, "job": jobFields},
			Shape:   llm.ShapeObject,
			Tier:    llm.TierStandard,
		}, &letter)
		switch {
		case err != nil:
			log.Warn("cover letter pass failed", zap.Error(err))
			bundle.Warnings = append(bundle.Warnings, "cover letter could not be generated")
		case strings.TrimSpace(letter.CoverLetter) == "":
			bundle.Warnings = append(bundle.Warnings, "cover letter could not be generated")
		default:
			text := letter.CoverLetter
			bundle.CoverLetter = &text
		}
	}

	if opts.Rationale {
		var why rationales
		err := t.pass(ctx, log, llm.Request{
			Name:    types.PromptRationale,
			System:  prompts.Format(c.Prompts[types.PromptRationale], data),
			Payload: map[string]any{"resume": source, "tailored_resume": tailored, "diff": bundle.Diff, "job": jobFields},
			Shape:   llm.ShapeObject,
			Tier:    llm.TierLite,
		}, &why)
		if err != nil {
			log.Warn("rationale pass failed", zap.Error(err))
			bundle.Warnings = append(bundle.Warnings, "change rationale could not be generated")
		} else {
			bundle.Rationales = why.Rationales
		}
	}

	return &types.TailorResult{OK: true, Errors: []string{}, Bundle: bundle}
}

// pass runs one completion and decodes it into out
func (t *Tailorer) pass(ctx context.Context, log *zap.Logger, req llm.Request, out any) error {
	started := time.Now()
	resp, err := t.gateway.Complete(ctx, req)
	elapsed := time.Since(started)
	t.metrics.ObservePass(req.Name, elapsed)
	if err != nil {
		return fmt.Errorf("%s pass: %w", req.Name, err)
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("%s pass: %w", req.Name, &llm.GatewayError{
			Kind:    llm.KindMalformed,
			Request: req.Name,
			Message: "response does not match the expected structure",
			Cause:   err,
		})
	}
	log.Debug("pass completed",
		zap.String(logger.FieldPass, req.Name),
		zap.Duration("duration", elapsed),
		zap.String("response", logger.Truncate(string(resp), 200)))
	return nil
}

func (t *Tailorer) schemaFor(c *types.Codex) (*schemas.Schema, error) {
	key := c.ID + "@" + c.Version
	t.schemaMu.Lock()
	defer t.schemaMu.Unlock()
	if s, ok := t.schemas[key]; ok {
		return s, nil
	}
	s, err := schemas.Compile(c.OutputSchema)
	if err != nil {
		return nil, err
	}
	t.schemas[key] = s
	return s, nil
}

// ResumeFromRecord decodes the fields of an extracted résumé record
func ResumeFromRecord(record *types.StructuredRecord) (*types.Resume, error) {
	if record == nil || record.Fields == nil {
		return nil, errors.New("résumé record is empty")
	}
	data, err := json.Marshal(record.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode résumé fields: %w", err)
	}
	var r types.Resume
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("résumé fields have the wrong structure: %w", err)
	}
	if len(r.Experience) == 0 {
		return nil, errors.New("résumé has no experience entries")
	}
	return &r, nil
}

// CoverageScore is the mean confidence of the coverage entries that cite
// résumé evidence, over all entries
func CoverageScore(entries []types.CoverageMatrixEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		if strings.TrimSpace(e.ResumeEvidence) != "" {
			sum += e.Confidence
		}
	}
	return math.Round(sum/float64(len(entries))*1000) / 1000
}

func failed(msg string) *types.TailorResult {
	return &types.TailorResult{OK: false, Errors: []string{msg}}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
