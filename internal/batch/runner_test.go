package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// fakeProcessor records concurrency and can fail or block selected units
type fakeProcessor struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	processed   atomic.Int32
	fail        map[string]bool
	onStart     func(unit *types.ProcessingUnit)
	ctxErrs     atomic.Int32
}

func (p *fakeProcessor) Process(ctx context.Context, unit *types.ProcessingUnit) error {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		cur := p.maxInFlight.Load()
		if n <= cur || p.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if p.onStart != nil {
		p.onStart(unit)
	}
	time.Sleep(5 * time.Millisecond)
	if ctx.Err() != nil {
		p.ctxErrs.Add(1)
	}
	p.processed.Add(1)
	if p.fail[unit.ID] {
		return errors.New("persist failed")
	}
	return nil
}

func makeUnits(n int) []*types.ProcessingUnit {
	units := make([]*types.ProcessingUnit, n)
	for i := range units {
		units[i] = types.NewProcessingUnit(fmt.Sprintf("u%d", i), "text", types.SourceText, "job-card-v1", "b1")
	}
	return units
}

func newBatch(total int) *types.BatchJob {
	now := time.Now().UTC()
	return &types.BatchJob{ID: "b1", Status: types.BatchPending, TotalUnits: total, CodexID: "job-card-v1", CreatedAt: now, UpdatedAt: now}
}

func TestRun_ProgressSequence(t *testing.T) {
	tests := []struct {
		units       int
		concurrency int
		want        []int
	}{
		{7, 3, []int{0, 3, 6, 7}},
		{6, 3, []int{0, 3, 6}},
		{2, 5, []int{0, 2}},
		{4, 1, []int{0, 1, 2, 3, 4}},
		{5, 0, []int{0, 3, 5}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d units concurrency %d", tt.units, tt.concurrency), func(t *testing.T) {
			mem := store.NewMemory()
			proc := &fakeProcessor{}
			runner := NewRunner(proc, mem, nil, nil)
			batch := newBatch(tt.units)

			var seen []int
			var statuses []types.BatchStatus
			err := runner.Run(context.Background(), batch, makeUnits(tt.units), tt.concurrency, func(ev ProgressEvent) {
				seen = append(seen, ev.CompletedUnits)
				statuses = append(statuses, ev.Status)
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, seen)
			assert.Equal(t, types.BatchCompleted, statuses[len(statuses)-1])
			for _, s := range statuses[:len(statuses)-1] {
				assert.Equal(t, types.BatchProcessing, s)
			}

			stored, err := mem.GetBatch(context.Background(), "b1")
			require.NoError(t, err)
			assert.Equal(t, types.BatchCompleted, stored.Status)
			assert.Equal(t, stored.TotalUnits, stored.CompletedUnits)

			wantMax := tt.concurrency
			if wantMax <= 0 {
				wantMax = types.DefaultBatchConcurrency
			}
			assert.LessOrEqual(t, int(proc.maxInFlight.Load()), wantMax)
		})
	}
}

func TestRun_ChunkBarrier(t *testing.T) {
	proc := &fakeProcessor{}
	runner := NewRunner(proc, store.NewMemory(), nil, nil)

	var mu sync.Mutex
	var processedAtEvent []int32
	err := runner.Run(context.Background(), newBatch(7), makeUnits(7), 3, func(ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		processedAtEvent = append(processedAtEvent, proc.processed.Load())
	})
	require.NoError(t, err)
	// progress is written only after every unit of the chunk finished
	assert.Equal(t, []int32{0, 3, 6, 7}, processedAtEvent)
}

func TestRun_UnitFailuresDoNotStopBatch(t *testing.T) {
	proc := &fakeProcessor{fail: map[string]bool{"u0": true, "u4": true}}
	mem := store.NewMemory()
	batch := newBatch(5)

	require.NoError(t, NewRunner(proc, mem, nil, nil).Run(context.Background(), batch, makeUnits(5), 2, nil))
	assert.Equal(t, int32(5), proc.processed.Load())
	assert.Equal(t, types.BatchCompleted, batch.Status)
	assert.Equal(t, 5, batch.CompletedUnits)
}

func TestRun_CancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := &fakeProcessor{onStart: func(unit *types.ProcessingUnit) {
		if unit.ID == "u1" {
			cancel()
		}
	}}
	mem := store.NewMemory()
	batch := newBatch(7)

	var seen []int
	err := NewRunner(proc, mem, nil, nil).Run(ctx, batch, makeUnits(7), 3, func(ev ProgressEvent) {
		seen = append(seen, ev.CompletedUnits)
	})
	require.ErrorIs(t, err, context.Canceled)

	// the first chunk finished on a detached context, nothing else started
	assert.Equal(t, int32(3), proc.processed.Load())
	assert.Equal(t, int32(0), proc.ctxErrs.Load())
	assert.Equal(t, []int{0, 3, 3}, seen)

	stored, getErr := mem.GetBatch(context.Background(), "b1")
	require.NoError(t, getErr)
	assert.Equal(t, types.BatchError, stored.Status)
	assert.Equal(t, 3, stored.CompletedUnits)
}

func TestRun_EmptyBatch(t *testing.T) {
	mem := store.NewMemory()
	batch := newBatch(0)

	var events []ProgressEvent
	require.NoError(t, NewRunner(&fakeProcessor{}, mem, nil, nil).Run(context.Background(), batch, nil, 3, func(ev ProgressEvent) {
		events = append(events, ev)
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.BatchCompleted, events[0].Status)
}

type failingBatchStore struct{ store.BatchStore }

func (failingBatchStore) PutBatch(context.Context, *types.BatchJob) error {
	return errors.New("database is down")
}

func TestRun_PersistFailure(t *testing.T) {
	proc := &fakeProcessor{}
	err := NewRunner(proc, failingBatchStore{}, nil, nil).Run(context.Background(), newBatch(3), makeUnits(3), 3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is down")
	assert.Equal(t, int32(0), proc.processed.Load())
}
