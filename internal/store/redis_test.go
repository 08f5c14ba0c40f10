package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// countingStore counts reads that reach the backing store
type countingStore struct {
	*Memory
	unitReads  int
	codexReads int
}

func (c *countingStore) GetUnit(ctx context.Context, id string) (*types.ProcessingUnit, error) {
	c.unitReads++
	return c.Memory.GetUnit(ctx, id)
}

func (c *countingStore) GetCodex(ctx context.Context, id string) (*types.Codex, error) {
	c.codexReads++
	return c.Memory.GetCodex(ctx, id)
}

func setupCached(t *testing.T) (*Cached, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingStore{Memory: NewMemory()}
	return NewCached(backing, client, time.Minute, nil), backing, mr
}

func TestCached_UnitWriteThrough(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := setupCached(t)

	unit := types.NewProcessingUnit("u-1", "text", types.SourceText, "job-card-v1", "")
	require.NoError(t, cached.PutUnit(ctx, unit))
	assert.True(t, mr.Exists("unit:u-1"))

	got, err := cached.GetUnit(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, types.UnitPending, got.Status)
	assert.Equal(t, 0, backing.unitReads)

	// the backing store stays authoritative
	stored, err := backing.Memory.GetUnit(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", stored.ID)
}

func TestCached_ReadThroughAndExpiry(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := setupCached(t)

	require.NoError(t, backing.Memory.PutUnit(ctx, types.NewProcessingUnit("u-2", "text", types.SourceText, "job-card-v1", "")))

	_, err := cached.GetUnit(ctx, "u-2")
	require.NoError(t, err)
	_, err = cached.GetUnit(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.unitReads)

	mr.FastForward(2 * time.Minute)

	_, err = cached.GetUnit(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.unitReads)
}

func TestCached_CodexInvalidation(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := setupCached(t)

	require.NoError(t, cached.PutCodex(ctx, &types.Codex{ID: "job-card-v1", Version: "1"}))
	c, err := cached.GetCodex(ctx, "job-card-v1")
	require.NoError(t, err)
	assert.Equal(t, "1", c.Version)
	assert.True(t, mr.Exists("codex:job-card-v1"))

	require.NoError(t, cached.PutCodex(ctx, &types.Codex{ID: "job-card-v1", Version: "2"}))
	assert.False(t, mr.Exists("codex:job-card-v1"))

	c, err = cached.GetCodex(ctx, "job-card-v1")
	require.NoError(t, err)
	assert.Equal(t, "2", c.Version)
	assert.Equal(t, 2, backing.codexReads)
}

func TestCached_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := setupCached(t)

	_, err := cached.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("batch:missing"))
}

func TestCached_SurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	cached := NewCached(NewMemory(), client, time.Minute, nil)
	mr.Close()

	require.NoError(t, cached.PutBatch(ctx, &types.BatchJob{ID: "b-1", TotalUnits: 3}))
	b, err := cached.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 3, b.TotalUnits)
}
