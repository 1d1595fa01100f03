package shutdown

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Handler is implemented by whatever subcontroller is named in
// main.shutdown_manager (currently only "vdr" -> internal/vdr.Controller)
// to decide whether the system may power off right now.
type Handler interface {
	AttemptShutdown(ctx context.Context) (bool, error)
}

// Pipeline drives a Handler through the poweroff / prepare_shutdown /
// attempt_shutdown sequence described in spec.md §4.5, retrying on a
// DelayedRepeatableTask until the handler agrees it is safe to power
// off or the attempt is cancelled.
type Pipeline struct {
	log     hclog.Logger
	handler Handler
	queue   *Queue
	retry   *DelayedRepeatableTask
}

// NewPipeline constructs a Pipeline. queue must already be Start()ed.
func NewPipeline(log hclog.Logger, handler Handler, queue *Queue) *Pipeline {
	return &Pipeline{
		log:     log.Named("shutdown-pipeline"),
		handler: handler,
		queue:   queue,
		retry:   NewDelayedRepeatableTask(),
	}
}

// PrepareShutdown arms a repeating attempt: the handler's
// AttemptShutdown is invoked after delay, then every retryInterval,
// until it returns true (shutdown proceeds) or Cancel is called.
func (p *Pipeline) PrepareShutdown(delay, retryInterval time.Duration) {
	p.retry.Arm(delay, retryInterval, func() {
		p.queue.Submit(func(ctx context.Context) {
			ok, err := p.handler.AttemptShutdown(ctx)
			if err != nil {
				p.log.Warn("attempt_shutdown failed", "error", err)
				return
			}
			if ok {
				p.log.Info("shutdown confirmed, stopping retry timer")
				p.retry.Stop()
			}
		})
	})
}

// Cancel stops any pending retry, used when the user or controller
// aborts a pending shutdown (spec.md §4.1 PREPARE_SHUTDOWN -> other
// state transitions).
func (p *Pipeline) Cancel() {
	p.retry.Stop()
}

// Poweroff makes a single, immediate attempt_shutdown call without
// arming a retry, used for the explicit "poweroff now" operation.
func (p *Pipeline) Poweroff() {
	p.queue.Submit(func(ctx context.Context) {
		if _, err := p.handler.AttemptShutdown(ctx); err != nil {
			p.log.Warn("poweroff attempt_shutdown failed", "error", err)
		}
	})
}

// Pending reports whether a shutdown retry is currently armed.
func (p *Pipeline) Pending() bool {
	return p.retry.Armed()
}
