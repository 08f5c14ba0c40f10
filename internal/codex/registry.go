// Package codex owns the versioned codex configurations that drive
// extraction and tailoring.
package codex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/prompts"
	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/types"
)

//go:embed builtin/*.json
var builtinFiles embed.FS

// Built-in codex ids
const (
	JobCardV1      = "job-card-v1"
	JobCardV2      = "job-card-v2"
	ResumeCardV1   = "resume-card-v1"
	ResumeTailorV1 = "resume-tailor-v1"
)

// Registry validates, stores and serves codexes. Once a codex has been
// resolved for processing it is published: its content can no longer change.
type Registry struct {
	store    store.CodexStore
	validate *validator.Validate
	logger   *zap.Logger

	mu         sync.RWMutex
	cache      map[string]*types.Codex
	referenced map[string]bool
}

// NewRegistry creates a registry backed by s
func NewRegistry(s store.CodexStore, log *zap.Logger) *Registry {
	return &Registry{
		store:      s,
		validate:   validator.New(),
		logger:     logger.OrNop(log),
		cache:      make(map[string]*types.Codex),
		referenced: make(map[string]bool),
	}
}

// Get returns a copy of the codex with the given id or ErrNotFound
func (r *Registry) Get(ctx context.Context, id string) (*types.Codex, error) {
	r.mu.RLock()
	c, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return c.Clone(), nil
	}

	c, err := r.store.GetCodex(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("codex %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load codex %q: %w", id, err)
	}

	r.mu.Lock()
	r.cache[id] = c.Clone()
	r.mu.Unlock()
	return c, nil
}

// Resolve returns the codex for processing and marks it as published.
// A missing codex is reported as a *ConfigurationError.
func (r *Registry) Resolve(ctx context.Context, id string) (*types.Codex, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ConfigurationError{CodexID: id, Problems: []string{"codex does not exist"}, Cause: err}
		}
		return nil, err
	}
	r.mu.Lock()
	r.referenced[id] = true
	r.mu.Unlock()
	return c, nil
}

// List returns every codex ordered by id
func (r *Registry) List(ctx context.Context) ([]*types.Codex, error) {
	return r.store.ListCodexes(ctx)
}

// Put validates and stores a codex as a whole. Re-submitting identical
// content is a no-op; changing a published codex fails with ErrPublished.
func (r *Registry) Put(ctx context.Context, c *types.Codex) (*types.Codex, error) {
	if c == nil {
		return nil, &ConfigurationError{Problems: []string{"codex is empty"}}
	}
	resolved, err := resolvePrompts(c)
	if err != nil {
		return nil, err
	}
	if err := Validate(r.validate, resolved); err != nil {
		return nil, err
	}

	hash, err := ContentHash(resolved)
	if err != nil {
		return nil, &ConfigurationError{CodexID: c.ID, Cause: err}
	}

	existing, err := r.Get(ctx, resolved.ID)
	switch {
	case err == nil:
		existingHash, herr := ContentHash(existing)
		if herr == nil && existingHash == hash {
			return existing, nil
		}
		published, perr := r.isPublished(ctx, resolved.ID)
		if perr != nil {
			return nil, perr
		}
		if published {
			return nil, fmt.Errorf("codex %q: %w", resolved.ID, ErrPublished)
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if resolved.CreatedAt.IsZero() {
		resolved.CreatedAt = time.Now().UTC()
	}
	if err := r.store.PutCodex(ctx, resolved); err != nil {
		return nil, fmt.Errorf("failed to store codex %q: %w", resolved.ID, err)
	}

	r.mu.Lock()
	r.cache[resolved.ID] = resolved.Clone()
	r.mu.Unlock()

	r.logger.Info("codex stored",
		zap.String(logger.FieldCodexID, resolved.ID),
		zap.String("version", resolved.Version),
		zap.String("hash", hash[:12]))
	return resolved, nil
}

func (r *Registry) isPublished(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	ref := r.referenced[id]
	r.mu.RUnlock()
	if ref {
		return true, nil
	}
	inUse, err := r.store.CodexInUse(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check codex usage: %w", err)
	}
	return inUse, nil
}

// LoadBuiltins installs the embedded codexes
func (r *Registry) LoadBuiltins(ctx context.Context) error {
	entries, err := builtinFiles.ReadDir("builtin")
	if err != nil {
		return fmt.Errorf("failed to read built-in codexes: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinFiles.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if _, err := r.putJSON(ctx, entry.Name(), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir installs every *.json codex file in dir and returns how many were loaded
func (r *Registry) LoadDir(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list codex directory: %w", err)
	}
	sort.Strings(paths)
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return i, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if _, err := r.putJSON(ctx, filepath.Base(path), data); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}

func (r *Registry) putJSON(ctx context.Context, name string, data []byte) (*types.Codex, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out, err := r.Put(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Decode parses a codex document, rejecting unknown fields
func Decode(data []byte) (*types.Codex, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var c types.Codex
	if err := dec.Decode(&c); err != nil {
		return nil, &ConfigurationError{Problems: []string{"codex document is not valid JSON"}, Cause: err}
	}
	return &c, nil
}

// resolvePrompts returns a copy of c with prompt references replaced by
// their embedded templates.
func resolvePrompts(c *types.Codex) (*types.Codex, error) {
	out := *c
	out.Prompts = make(map[string]string, len(c.Prompts))
	var problems []string
	for name, tmpl := range c.Prompts {
		text, err := prompts.Resolve(tmpl)
		if err != nil {
			problems = append(problems, fmt.Sprintf("prompts.%s: %v", name, err))
			continue
		}
		out.Prompts[name] = text
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ConfigurationError{CodexID: c.ID, Problems: problems}
	}
	return &out, nil
}

// ContentHash is the SHA-256 of the codex's canonical JSON form.
// CreatedAt is excluded.
func ContentHash(c *types.Codex) (string, error) {
	cp := *c
	cp.CreatedAt = time.Time{}
	if len(cp.OutputSchema) > 0 {
		var schema any
		if err := json.Unmarshal(cp.OutputSchema, &schema); err != nil {
			return "", fmt.Errorf("output_schema is not valid JSON: %w", err)
		}
		canonical, err := json.Marshal(schema)
		if err != nil {
			return "", err
		}
		cp.OutputSchema = canonical
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PromptData builds the placeholder values shared by a codex's templates
func PromptData(c *types.Codex) map[string]string {
	var fields []string
	var props struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(c.OutputSchema, &props); err == nil {
		for name := range props.Properties {
			fields = append(fields, name)
		}
		sort.Strings(fields)
	}
	subject := c.Subject
	if subject == "" {
		subject = "document"
	}
	return map[string]string{
		"Subject":    subject,
		"Fields":     strings.Join(fields, ", "),
		"Categories": strings.Join(c.Categories, ", "),
		"Schema":     string(c.OutputSchema),
	}
}
