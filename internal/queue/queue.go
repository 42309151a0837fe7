// Package queue serializes mutating operations against a single order.
//
// All mutations for one order pass through one FIFO, which eliminates lost
// updates and out-of-order writes without locks around the order state itself:
// a task runs to full completion, success or failure, before the next one is
// dequeued, so later tasks always observe post-reconciliation state.
package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when enqueuing on a closed queue.
var ErrClosed = errors.New("mutation queue is closed")

// Task is one mutating operation. Exactly one of OnSuccess/OnError runs after
// Run returns; both are optional. The task is owned by the queue from Enqueue
// until its callback returns.
type Task struct {
	Kind      string
	Run       func(ctx context.Context) error
	OnSuccess func()
	OnError   func(error)
}

// MutationQueue is an unbounded per-order FIFO with a single worker goroutine.
// Enqueue is safe from any goroutine; the signal channel is buffered at one so
// repeated enqueues coalesce.
type MutationQueue struct {
	mu         sync.Mutex
	tasks      []Task
	processing bool
	closed     bool

	signal chan struct{}
	done   chan struct{}
	logger *zap.Logger
}

func New(logger *zap.Logger) *MutationQueue {
	q := &MutationQueue{
		tasks:  make([]Task, 0, 8),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run()
	return q
}

// Enqueue appends a task. Returns ErrClosed after Close.
func (q *MutationQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.tasks = append(q.tasks, task)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return nil
}

// Do enqueues a task and blocks until it has been processed. Cancelling ctx
// abandons the wait, not the task: once started, a task runs to completion.
func (q *MutationQueue) Do(ctx context.Context, kind string, run func(context.Context) error) error {
	result := make(chan error, 1)

	err := q.Enqueue(Task{
		Kind:      kind,
		Run:       run,
		OnSuccess: func() { result <- nil },
		OnError:   func(err error) { result <- err },
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processing reports whether a task is currently in flight.
func (q *MutationQueue) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.processing
}

// Len is the number of tasks waiting behind the one in flight.
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Close stops accepting tasks. Already-enqueued tasks still run; Close returns
// once the worker has drained them.
func (q *MutationQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	<-q.done
}

func (q *MutationQueue) run() {
	for {
		task, ok := q.next()
		if !ok {
			close(q.done)
			return
		}

		err := task.Run(context.Background())

		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()

		if err != nil {
			if q.logger != nil {
				q.logger.Warn("mutation task failed", zap.String("kind", task.Kind), zap.Error(err))
			}
			if task.OnError != nil {
				task.OnError(err)
			}
		} else if task.OnSuccess != nil {
			task.OnSuccess()
		}
	}
}

// next blocks until a task is available or the queue is closed and drained.
func (q *MutationQueue) next() (Task, bool) {
	for {
		q.mu.Lock()
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.processing = true
			q.mu.Unlock()
			return task, true
		}
		if q.closed {
			q.mu.Unlock()
			return Task{}, false
		}
		q.mu.Unlock()

		<-q.signal
	}
}
