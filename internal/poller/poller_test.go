package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rkranz/quizlive/internal/model"
	"github.com/rkranz/quizlive/internal/router"
)

type stubSource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (s *stubSource) Snapshot(ctx context.Context) (router.SessionState, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return router.SessionState{}, errors.New("fetch failed")
	}
	return router.SessionState{SessionID: "sess-1", Status: model.StatusActive}, nil
}

func TestPoller_DeliversSnapshots(t *testing.T) {
	source := &stubSource{}
	got := make(chan router.SessionState, 8)

	p := New(
		Config{Interval: 20 * time.Millisecond, Timeout: time.Second},
		source,
		HandlerFunc(func(ev router.SessionState) { got <- ev }),
		nil,
	)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Stop(ctx)
	}()

	select {
	case ev := <-got:
		if ev.SessionID != "sess-1" {
			t.Errorf("SessionID = %q", ev.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no resync delivered")
	}
}

func TestPoller_FetchErrorSkipsTick(t *testing.T) {
	source := &stubSource{}
	source.fail.Store(true)

	var handled atomic.Int32
	p := New(
		Config{Interval: 10 * time.Millisecond, Timeout: time.Second},
		source,
		HandlerFunc(func(router.SessionState) { handled.Add(1) }),
		nil,
	)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let a few failing ticks pass, then recover.
	deadline := time.Now().Add(2 * time.Second)
	for source.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if handled.Load() != 0 {
		t.Errorf("handler invoked %d times during failures, want 0", handled.Load())
	}

	source.fail.Store(false)
	for handled.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if handled.Load() == 0 {
		t.Fatal("poller did not recover after fetch errors")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
}

func TestPoller_ZeroIntervalDisabled(t *testing.T) {
	source := &stubSource{}
	p := New(DefaultConfig(), source, HandlerFunc(func(router.SessionState) {}), nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if source.calls.Load() != 0 {
		t.Errorf("disabled poller fetched %d times", source.calls.Load())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Errorf("Stop on disabled poller: %v", err)
	}
}
