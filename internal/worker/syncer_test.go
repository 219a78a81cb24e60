package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPusher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingPusher) Push(context.Context) (service.PushResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return service.PushResult{Sent: 1}, p.err
}

func (p *countingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func runSyncer(t *testing.T, p Pusher) (cancel func(), done <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan struct{})
	s := NewSyncer(p, 10*time.Millisecond, time.Second, zap.NewNop())
	go func() {
		s.Run(ctx)
		close(ch)
	}()
	return cancel, ch
}

func TestSyncer_PushesOnEveryTick(t *testing.T) {
	p := &countingPusher{}
	cancel, done := runSyncer(t, p)

	require.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop")
	}
}

func TestSyncer_KeepsGoingAfterFailure(t *testing.T) {
	p := &countingPusher{err: errors.New("hq unreachable")}
	cancel, done := runSyncer(t, p)
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNewSyncer_TimeoutNotLongerThanInterval(t *testing.T) {
	s := NewSyncer(&countingPusher{}, time.Second, time.Minute, zap.NewNop())
	assert.Equal(t, time.Second, s.timeout)
	s = NewSyncer(&countingPusher{}, time.Minute, 0, zap.NewNop())
	assert.Equal(t, time.Minute, s.timeout)
}
