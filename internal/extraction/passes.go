package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/prompts"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Reserved synthesis keys that are lifted out of the record fields
const (
	keyEvidence   = "evidence"
	keyConfidence = "confidence"
)

// RawItem is one Pass 1 statement
type RawItem struct {
	Text        string `json:"text"`
	SourceQuote string `json:"source_quote"`
}

// ClassifiedItem is one Pass 2 statement assigned to a codex category
type ClassifiedItem struct {
	Category    string  `json:"category"`
	Text        string  `json:"text"`
	SourceQuote string  `json:"source_quote"`
	Confidence  float64 `json:"confidence"`
}

type classification struct {
	Items []ClassifiedItem `json:"items"`
}

type synthesisEvidence struct {
	FieldPath string `json:"field_path"`
	Quote     string `json:"quote"`
	Page      *int   `json:"page,omitempty"`
}

func (o *Orchestrator) extract(ctx context.Context, unit *types.ProcessingUnit, c *types.Codex, log *zap.Logger) (*types.StructuredRecord, error) {
	data := codex.PromptData(c)

	var raw []RawItem
	err := o.pass(ctx, log, llm.Request{
		Name:    types.PromptRawExtraction,
		System:  prompts.Format(c.Prompts[types.PromptRawExtraction], data),
		Payload: map[string]any{"document": unit.SourceText},
		Shape:   llm.ShapeArray,
		Tier:    llm.TierLite,
	}, &raw)
	if err != nil {
		return nil, err
	}

	var classified classification
	err = o.pass(ctx, log, llm.Request{
		Name:    types.PromptClassification,
		System:  prompts.Format(c.Prompts[types.PromptClassification], data),
		Payload: map[string]any{"document": unit.SourceText, "categories": c.Categories, "statements": raw},
		Shape:   llm.ShapeObject,
		Tier:    llm.TierLite,
	}, &classified)
	if err != nil {
		return nil, err
	}
	items := filterClassified(classified.Items, c, log)

	var synthesized map[string]any
	err = o.pass(ctx, log, llm.Request{
		Name:    types.PromptSynthesis,
		System:  prompts.Format(c.Prompts[types.PromptSynthesis], data),
		Payload: map[string]any{"document": unit.SourceText, "classified": items},
		Shape:   llm.ShapeObject,
		Tier:    llm.TierStandard,
	}, &synthesized)
	if err != nil {
		return nil, err
	}

	return assemble(synthesized, items)
}

// pass runs one completion and decodes it into out. A response that has the
// right shape but not the expected element types counts as malformed.
func (o *Orchestrator) pass(ctx context.Context, log *zap.Logger, req llm.Request, out any) error {
	started := time.Now()
	resp, err := o.gateway.Complete(ctx, req)
	elapsed := time.Since(started)
	o.metrics.ObservePass(req.Name, elapsed)
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

// filterClassified drops items with unknown categories and clamps confidence
func filterClassified(items []ClassifiedItem, c *types.Codex, log *zap.Logger) []ClassifiedItem {
	kept := make([]ClassifiedItem, 0, len(items))
	for _, item := range items {
		if !c.HasCategory(item.Category) {
			log.Debug("dropping item with unknown category", zap.String("category", item.Category))
			continue
		}
		item.Confidence = clamp(item.Confidence)
		kept = append(kept, item)
	}
	return kept
}

// assemble builds the record from the synthesis object and the classified
// items. Evidence from both sources is merged without duplicates; a path's
// confidence is the lowest score any source gave it.
func assemble(synthesized map[string]any, items []ClassifiedItem) (*types.StructuredRecord, error) {
	var evidenceRaw, confidenceRaw any
	if synthesized != nil {
		evidenceRaw = synthesized[keyEvidence]
		confidenceRaw = synthesized[keyConfidence]
		delete(synthesized, keyEvidence)
		delete(synthesized, keyConfidence)
	}
	record := types.NewStructuredRecord(synthesized)

	seen := make(map[types.Evidence]bool)
	addEvidence := func(ev types.Evidence) {
		key := types.Evidence{FieldPath: ev.FieldPath, Quote: ev.Quote}
		if ev.FieldPath == "" || seen[key] {
			return
		}
		seen[key] = true
		record.Evidence = append(record.Evidence, ev)
	}
	lower := func(path string, score float64) {
		if prev, ok := record.Confidence[path]; !ok || score < prev {
			record.Confidence[path] = score
		}
	}

	for _, item := range items {
		addEvidence(types.Evidence{FieldPath: item.Category, Quote: item.SourceQuote})
		lower(item.Category, item.Confidence)
	}

	if evidenceRaw != nil {
		var evidence []synthesisEvidence
		if err := redecode(evidenceRaw, &evidence); err != nil {
			return nil, malformedSynthesis(keyEvidence, err)
		}
		for _, ev := range evidence {
			addEvidence(types.Evidence{FieldPath: ev.FieldPath, Quote: ev.Quote, Page: ev.Page})
		}
	}

	if confidenceRaw != nil {
		var confidence map[string]float64
		if err := redecode(confidenceRaw, &confidence); err != nil {
			return nil, malformedSynthesis(keyConfidence, err)
		}
		for path, score := range confidence {
			lower(path, clamp(score))
		}
	}
	return record, nil
}

func redecode(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func malformedSynthesis(key string, err error) error {
	return fmt.Errorf("%s pass: %w", types.PromptSynthesis, &llm.GatewayError{
		Kind:    llm.KindMalformed,
		Request: types.PromptSynthesis,
		Message: fmt.Sprintf("%q has the wrong structure", key),
		Cause:   err,
	})
}

func clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
