package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// Memory is an in-process Store. Values are deep-copied on the way in and
// out so callers never share record maps with the store.
type Memory struct {
	mu      sync.RWMutex
	codexes map[string]*types.Codex
	units   map[string]*types.ProcessingUnit
	batches map[string]*types.BatchJob
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		codexes: make(map[string]*types.Codex),
		units:   make(map[string]*types.ProcessingUnit),
		batches: make(map[string]*types.BatchJob),
	}
}

// clone deep-copies v through its JSON form
func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %T: %w", v, err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy %T: %w", v, err)
	}
	return &out, nil
}

// GetCodex returns the codex with the given id
func (m *Memory) GetCodex(_ context.Context, id string) (*types.Codex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.codexes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c)
}

// PutCodex stores or replaces a codex
func (m *Memory) PutCodex(_ context.Context, codex *types.Codex) error {
	c, err := clone(codex)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.codexes[c.ID] = c
	m.mu.Unlock()
	return nil
}

// ListCodexes returns all codexes ordered by id
func (m *Memory) ListCodexes(_ context.Context) ([]*types.Codex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Codex, 0, len(m.codexes))
	for _, c := range m.codexes {
		cp, err := clone(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CodexInUse reports whether any stored unit references the codex
func (m *Memory) CodexInUse(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.units {
		if u.CodexID == id {
			return true, nil
		}
	}
	return false, nil
}

// GetUnit returns the unit with the given id
func (m *Memory) GetUnit(_ context.Context, id string) (*types.ProcessingUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u)
}

// PutUnit stores or replaces a unit
func (m *Memory) PutUnit(_ context.Context, unit *types.ProcessingUnit) error {
	u, err := clone(unit)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.units[u.ID] = u
	m.mu.Unlock()
	return nil
}

// ListUnitsByBatch returns a batch's units in creation order
func (m *Memory) ListUnitsByBatch(_ context.Context, batchID string) ([]*types.ProcessingUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.ProcessingUnit
	for _, u := range m.units {
		if u.BatchID == nil || *u.BatchID != batchID {
			continue
		}
		cp, err := clone(u)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetBatch returns the batch with the given id
func (m *Memory) GetBatch(_ context.Context, id string) (*types.BatchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// PutBatch stores or replaces a batch
func (m *Memory) PutBatch(_ context.Context, batch *types.BatchJob) error {
	cp := *batch
	m.mu.Lock()
	m.batches[cp.ID] = &cp
	m.mu.Unlock()
	return nil
}
