// Package extraction drives a processing unit through the three completion
// passes and the deterministic post-processing that turns a document into a
// structured record.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/schemas"
	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// User-facing failure messages. Causes go to ErrorDetail and the log.
const (
	MsgCodexUnavailable = "codex configuration is unavailable"
	MsgNoText           = "document contains no text"
	MsgExtractionFailed = "extraction failed; please retry later"
	MsgUnreadable       = "could not read document"
)

// ErrEmptySource is the cause recorded when a unit has no text to extract from
var ErrEmptySource = errors.New("source text is empty")

// CodexResolver looks up the codex for a unit and marks it published
type CodexResolver interface {
	Resolve(ctx context.Context, id string) (*types.Codex, error)
}

// Orchestrator owns the unit state machine: it is the only component that
// moves a unit into a terminal state.
type Orchestrator struct {
	codexes CodexResolver
	gateway llm.Gateway
	units   store.UnitStore
	metrics *metrics.Metrics
	logger  *zap.Logger

	schemaMu sync.Mutex
	schemas  map[string]*schemas.Schema
}

// NewOrchestrator wires an orchestrator. m and log may be nil.
func NewOrchestrator(codexes CodexResolver, gateway llm.Gateway, units store.UnitStore, m *metrics.Metrics, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		codexes: codexes,
		gateway: gateway,
		units:   units,
		metrics: m,
		logger:  logger.OrNop(log),
		schemas: make(map[string]*schemas.Schema),
	}
}

// Acquire fills a pending unit's source text from an uploaded document.
// When the reader fails the unit is moved to failed and persisted, and the
// read error is returned; the unit must not be processed further.
func (o *Orchestrator) Acquire(ctx context.Context, unit *types.ProcessingUnit, reader ingestion.Reader, data []byte, mimeType string) (*ingestion.Document, error) {
	log := logger.Unit(o.logger, unit.ID, unit.CodexID)

	doc, err := reader.Read(ctx, data, mimeType)
	if err != nil {
		if failErr := o.fail(ctx, unit, types.UnitFailed, MsgUnreadable, err, log); failErr != nil {
			return nil, failErr
		}
		return nil, err
	}

	unit.SourceText = doc.Text
	unit.SourceKind = doc.Kind
	unit.UpdatedAt = time.Now().UTC()
	if err := o.units.PutUnit(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to persist unit %s: %w", unit.ID, err)
	}
	log.Debug("document acquired",
		zap.String("kind", string(doc.Kind)),
		zap.Int("pages", doc.PageCount),
		zap.Int("chars", len(doc.Text)))
	return doc, nil
}

// Process drives a pending unit to a terminal state, persisting every
// transition. Extraction failures are recorded on the unit, not returned:
// an error means the unit could not be driven or persisted.
func (o *Orchestrator) Process(ctx context.Context, unit *types.ProcessingUnit) error {
	log := logger.Unit(o.logger, unit.ID, unit.CodexID)
	started := time.Now()

	if err := o.advance(ctx, unit, types.UnitProcessing); err != nil {
		return err
	}

	c, err := o.codexes.Resolve(ctx, unit.CodexID)
	if err == nil && c.Kind != types.CodexKindExtraction {
		err = fmt.Errorf("codex %q has kind %s, not extraction", c.ID, c.Kind)
	}
	if err != nil {
		return o.fail(ctx, unit, types.UnitError, MsgCodexUnavailable, err, log)
	}

	if strings.TrimSpace(unit.SourceText) == "" {
		return o.fail(ctx, unit, types.UnitFailed, MsgNoText, ErrEmptySource, log)
	}

	if err := o.advance(ctx, unit, types.UnitExtracting); err != nil {
		return err
	}
	record, err := o.extract(ctx, unit, c, log)
	if err != nil {
		return o.fail(ctx, unit, types.UnitError, MsgExtractionFailed, err, log)
	}

	if err := o.advance(ctx, unit, types.UnitValidating); err != nil {
		return err
	}
	report, err := o.postProcess(record, c, unit.SourceText, log)
	if err != nil {
		return o.fail(ctx, unit, types.UnitError, MsgCodexUnavailable, err, log)
	}

	unit.Record = record
	if err := o.advance(ctx, unit, types.UnitCompleted); err != nil {
		return err
	}
	o.metrics.UnitFinished(string(types.UnitCompleted), unit.CodexID)
	log.Info("unit completed",
		zap.Int("fields", len(record.Fields)),
		zap.Int("evidence", len(record.Evidence)),
		zap.Int("flags", len(record.MissingFields)),
		zap.Int("normalized", report.Normalized.Applied),
		zap.Int("evidence_dropped", len(report.Evidence.Dropped)),
		zap.Duration("duration", time.Since(started)))
	return nil
}

func (o *Orchestrator) advance(ctx context.Context, unit *types.ProcessingUnit, to types.UnitStatus) error {
	if err := unit.Transition(to); err != nil {
		return err
	}
	if err := o.units.PutUnit(ctx, unit); err != nil {
		return fmt.Errorf("failed to persist unit %s (%s): %w", unit.ID, to, err)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, unit *types.ProcessingUnit, to types.UnitStatus, message string, cause error, log *zap.Logger) error {
	from := unit.Status
	if err := unit.Fail(to, message, cause); err != nil {
		return err
	}
	// persist even when the caller's context is gone so the failure is visible
	if err := o.units.PutUnit(context.WithoutCancel(ctx), unit); err != nil {
		return fmt.Errorf("failed to persist unit %s (%s): %w", unit.ID, to, err)
	}
	o.metrics.UnitFinished(string(to), unit.CodexID)
	log.Warn("unit did not complete",
		zap.String("from", string(from)),
		zap.String("status", string(to)),
		zap.String("reason", message),
		zap.Error(cause))
	return nil
}

// schemaFor compiles and caches a codex's output schema. A resolved codex is
// published, so its schema never changes under the same id and version.
func (o *Orchestrator) schemaFor(c *types.Codex) (*schemas.Schema, error) {
	key := c.ID + "@" + c.Version
	o.schemaMu.Lock()
	defer o.schemaMu.Unlock()
	if s, ok := o.schemas[key]; ok {
		return s, nil
	}
	s, err := schemas.Compile(c.OutputSchema)
	if err != nil {
		return nil, err
	}
	o.schemas[key] = s
	return s, nil
}
