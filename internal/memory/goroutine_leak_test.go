package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestHeapSampler_GoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewHeapSampler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx, time.Millisecond)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done
}
