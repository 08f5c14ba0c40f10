package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
)

// Worker pool defaults
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken
	ErrQueueFull = errors.New("work queue is full")
	// ErrStopped is returned by Submit after Stop
	ErrStopped = errors.New("dispatcher is stopped")
)

// Task is one unit of background work
type Task func(ctx context.Context)

// Dispatcher is a fixed-size worker pool fed by a buffered queue
type Dispatcher struct {
	tasks  chan Task
	wg     sync.WaitGroup
	logger *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher starts workers goroutines reading from a queue of queueSize
// slots. Non-positive values select the defaults.
func NewDispatcher(workers, queueSize int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		tasks:  make(chan Task, queueSize),
		logger: logger.OrNop(log),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	return d
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for task := range d.tasks {
		d.run(id, task)
	}
}

func (d *Dispatcher) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	task(context.Background())
}

// Submit enqueues task without blocking
func (d *Dispatcher) Submit(task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new tasks and waits until every queued task has run
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.tasks)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
