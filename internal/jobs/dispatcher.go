// Package jobs provides the fire-and-forget task dispatcher used to keep
// remote catalog pushes and other slow work off the webhook path.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Task is a named unit of background work.
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher consumes enqueued tasks on a single worker goroutine. Tasks
// are executed at most once; failures are logged and abandoned, never
// retried. Callers must not assume completion ordering relative to the
// request that enqueued the task.
type Dispatcher struct {
	queue   chan Task
	timeout time.Duration
	wg      sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
}

func NewDispatcher(queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Dispatcher{
		queue:   make(chan Task, queueSize),
		timeout: 60 * time.Second,
		stop:    make(chan struct{}),
	}
}

// Start launches the worker loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case task := <-d.queue:
			d.execute(task)
		case <-d.stop:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case task := <-d.queue:
					d.execute(task)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", task.Name).Str("task_id", task.ID).
				Interface("panic", r).Msg("background task panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := task.Run(ctx); err != nil {
		log.Error().Err(err).Str("task", task.Name).Str("task_id", task.ID).
			Msg("background task failed")
		return
	}
	log.Debug().Str("task", task.Name).Str("task_id", task.ID).Msg("background task done")
}

// Enqueue schedules fn for execution and returns immediately. When the
// queue is full the task is dropped with a logged error rather than
// blocking the caller.
func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) {
	task := Task{ID: uuid.NewString(), Name: name, Run: fn}
	select {
	case d.queue <- task:
	default:
		log.Error().Str("task", name).Msg("job queue full, task dropped")
	}
}

// Stop shuts the worker down after draining queued tasks.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}
