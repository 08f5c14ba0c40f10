package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsAllTasksBeforeStopReturns(t *testing.T) {
	d := NewDispatcher(3, 100, nil)
	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, d.Submit(func(context.Context) { ran.Add(1) }))
	}
	d.Stop()
	assert.Equal(t, int32(50), ran.Load())
}

func TestDispatcher_RejectsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, d.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, d.Submit(func(context.Context) {}))
	assert.ErrorIs(t, d.Submit(func(context.Context) {}), ErrQueueFull)

	close(release)
	d.Stop()
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(1, 1, nil)
	d.Stop()
	d.Stop()
	assert.ErrorIs(t, d.Submit(func(context.Context) {}), ErrStopped)
}

func TestDispatcher_SurvivesPanics(t *testing.T) {
	d := NewDispatcher(1, 4, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, d.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, d.Submit(func(context.Context) { wg.Done() }))
	wg.Wait()
	d.Stop()
}
