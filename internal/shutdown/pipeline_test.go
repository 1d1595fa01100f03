package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	attempts atomic.Int32
	succeeds int32
}

func (f *fakeHandler) AttemptShutdown(ctx context.Context) (bool, error) {
	n := f.attempts.Add(1)
	return n >= f.succeeds, nil
}

func TestPipelinePrepareShutdownRetriesUntilConfirmed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := hclog.NewNullLogger()
	queue := NewQueue(log)
	queue.Start(ctx)

	handler := &fakeHandler{succeeds: 3}
	p := NewPipeline(log, handler, queue)
	defer p.Cancel()

	p.PrepareShutdown(2*time.Millisecond, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return handler.attempts.Load() >= 3 && !p.Pending()
	}, time.Second, time.Millisecond)
}

func TestPipelineCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := hclog.NewNullLogger()
	queue := NewQueue(log)
	queue.Start(ctx)

	handler := &fakeHandler{succeeds: 1000}
	p := NewPipeline(log, handler, queue)

	p.PrepareShutdown(2*time.Millisecond, 5*time.Millisecond)
	require.Eventually(t, func() bool { return handler.attempts.Load() >= 1 }, time.Second, time.Millisecond)

	p.Cancel()
	seen := handler.attempts.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, handler.attempts.Load()-seen, int32(1))
}

func TestPipelinePoweroffMakesSingleAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := hclog.NewNullLogger()
	queue := NewQueue(log)
	queue.Start(ctx)

	handler := &fakeHandler{succeeds: 1}
	p := NewPipeline(log, handler, queue)

	p.Poweroff()
	require.Eventually(t, func() bool { return handler.attempts.Load() == 1 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), handler.attempts.Load())
	assert.False(t, p.Pending())
}
