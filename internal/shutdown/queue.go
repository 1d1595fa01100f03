// Package shutdown implements the shutdown-request queue, the
// delayed/repeatable retry timer, and the pipeline that drives a
// Handler through poweroff/prepare_shutdown/attempt_shutdown.
package shutdown

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Task is unit of work run on the shutdown queue's single worker
// goroutine.
type Task func(ctx context.Context)

// Queue is a capacity-1 task queue: Submit always keeps only the most
// recently submitted, not-yet-run task, matching spec.md §3's
// ShutdownQueue ("chan func(context.Context) of capacity 1, drained by
// one goroutine").
type Queue struct {
	ch  chan Task
	log hclog.Logger
}

// NewQueue constructs an unstarted Queue.
func NewQueue(log hclog.Logger) *Queue {
	return &Queue{
		ch:  make(chan Task, 1),
		log: log.Named("shutdown-queue"),
	}
}

// Start runs the single drain goroutine until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-q.ch:
				task(ctx)
			}
		}
	}()
}

// Submit enqueues task, replacing any task that is still pending (not
// yet picked up by the worker).
func (q *Queue) Submit(task Task) {
	select {
	case q.ch <- task:
		return
	default:
	}
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- task:
	default:
		q.log.Debug("dropped shutdown task racing with the worker")
	}
}
