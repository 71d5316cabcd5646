// Package poller periodically re-fetches the session snapshot through the
// bootstrap merge path. The incremental participant fallback can drift
// from server truth if a delta is lost during a reconnect gap; a periodic
// resync bounds how long such drift can last. Disabled by default.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rkranz/quizlive/internal/router"
)

// SnapshotSource produces resync events, typically a bootstrap.Coordinator.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (router.SessionState, error)
}

// Handler receives each fetched resync event.
type Handler interface {
	HandleResync(ev router.SessionState)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(router.SessionState)

func (f HandlerFunc) HandleResync(ev router.SessionState) { f(ev) }

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Resync interval; 0 disables the poller
	Timeout  time.Duration // Per-fetch timeout
}

// DefaultConfig returns sensible defaults (poller disabled).
func DefaultConfig() Config {
	return Config{
		Interval: 0,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically fetches snapshots and hands them to the handler.
type Poller struct {
	cfg     Config
	source  SnapshotSource
	handler Handler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Poller.
func New(cfg Config, source SnapshotSource, handler Handler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop. With a zero interval it does nothing.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return nil
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("resync poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts the poller down.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.resync()
		}
	}
}

func (p *Poller) resync() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	ev, err := p.source.Snapshot(ctx)
	if err != nil {
		// API failures here are advisory; the next tick tries again.
		p.logger.Warn("periodic resync failed", "error", err)
		return
	}

	p.handler.HandleResync(ev)
}
