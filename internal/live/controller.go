// Package live wires the Connection Manager, Message Dispatcher, Session
// State Reconciler, and Bootstrap Coordinator into one owned controller
// with an explicit start/stop lifecycle. A controller is constructed once
// per logical session and never re-entered.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rkranz/quizlive/internal/api"
	"github.com/rkranz/quizlive/internal/bootstrap"
	"github.com/rkranz/quizlive/internal/connection"
	"github.com/rkranz/quizlive/internal/model"
	"github.com/rkranz/quizlive/internal/poller"
	"github.com/rkranz/quizlive/internal/router"
	"github.com/rkranz/quizlive/internal/session"
)

// Controller owns the authoritative local session state for one quiz run.
type Controller struct {
	cfg    Config
	rest   *api.Client
	logger *slog.Logger

	mgr    *connection.Manager
	rt     *router.Router
	boot   *bootstrap.Coordinator
	resync *poller.Poller

	observers []Observer

	mu         sync.Mutex
	state      session.State
	connected  bool
	submitting bool

	updates chan Update

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a controller for one session. rest is the external
// request collaborator used for snapshots, answer submission, and session
// start.
func NewController(cfg Config, rest *api.Client, logger *slog.Logger, observers ...Observer) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UpdateBufferSize <= 0 {
		cfg.UpdateBufferSize = 64
	}

	wsURL := fmt.Sprintf("%s/quizzes/sessions/%s/ws/%s", cfg.WSBaseURL, cfg.SessionID, cfg.UserID)
	connCfg := cfg.Connection
	connCfg.URL = wsURL

	c := &Controller{
		cfg:       cfg,
		rest:      rest,
		logger:    logger,
		observers: observers,
		updates:   make(chan Update, cfg.UpdateBufferSize),
	}

	c.mgr = connection.NewManager(connCfg, logger)
	c.rt = router.New(c.mgr.Frames(), logger)
	c.boot = bootstrap.New(rest, cfg.SessionID, logger)
	c.resync = poller.New(
		poller.Config{Interval: cfg.ResyncInterval, Timeout: 10 * time.Second},
		c.boot,
		poller.HandlerFunc(c.applyResync),
		logger,
	)

	return c
}

// Start begins the event loop and opens the connection.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.rt.Start(c.ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := c.resync.Start(c.ctx); err != nil {
		return fmt.Errorf("start resync poller: %w", err)
	}

	c.wg.Add(1)
	go c.run()

	c.mgr.Connect()

	c.logger.Info("live controller started",
		"session_id", c.cfg.SessionID,
		"user_id", c.cfg.UserID,
	)
	return nil
}

// Stop disposes the controller: connection closed gracefully, timers
// cancelled, update stream closed.
func (c *Controller) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	c.mgr.Close()
	c.resync.Stop(ctx)
	c.rt.Stop(ctx)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("controller stop timed out")
	}

	close(c.updates)
	c.logger.Info("live controller stopped")
	return nil
}

// Updates returns the consumer update stream. Single consumer; closed by
// Stop.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Session returns the current reconciled state.
func (c *Controller) Session() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports transport connectivity. This is the only surface a
// transport failure has: reconnection is automatic and bounded.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Reconnect manually restarts the connection, honored even after the
// automatic attempt budget is exhausted.
func (c *Controller) Reconnect() {
	c.mgr.Connect()
}

// SelectAnswer records the locally chosen answer for the current question.
func (c *Controller) SelectAnswer(answer string) {
	c.mu.Lock()
	c.state.Selected = answer
	next := c.state
	connected := c.connected
	c.mu.Unlock()

	c.publish(Update{State: next, Connected: connected})
}

// SubmitAnswer submits the given answer for the current question. At most
// one submission is in flight at a time; errors from the collaborator are
// returned for the caller to retry manually.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) error {
	c.mu.Lock()
	if c.state.Inactive {
		c.mu.Unlock()
		return ErrSessionInactive
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	q := c.state.Current
	if q == nil {
		c.mu.Unlock()
		return ErrNoActiveQuestion
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	return c.rest.SubmitAnswer(ctx, model.Answer{
		SessionID:  c.cfg.SessionID,
		QuestionID: q.ID,
		UserID:     c.cfg.UserID,
		Answer:     answer,
	})
}

// StartSession asks the service to start the quiz.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	inactive := c.state.Inactive
	c.mu.Unlock()
	if inactive {
		return ErrSessionInactive
	}

	return c.rest.StartSession(ctx, c.cfg.SessionID)
}

// DispatcherStats exposes the dispatcher counters for diagnostics.
func (c *Controller) DispatcherStats() router.Stats {
	return c.rt.Stats()
}

// run is the single reconciliation loop: lifecycle notices and typed
// events are folded here, in arrival order.
func (c *Controller) run() {
	defer c.wg.Done()

	notices := c.mgr.Notices()
	events := c.rt.Events()

	for {
		select {
		case <-c.ctx.Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			c.handleNotice(n)
		case in, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(in)
		}
	}
}

func (c *Controller) handleNotice(n connection.Notice) {
	switch n.Kind {
	case connection.NoticeConnected:
		c.mu.Lock()
		c.connected = true
		next := c.state
		c.mu.Unlock()

		c.publish(Update{State: next, Connected: true})

		// Refetch a snapshot on every successful connect, not just the
		// first: events lost during a disconnected interval are never
		// individually redelivered.
		c.wg.Add(1)
		go c.bootstrapFetch()

	case connection.NoticeDisconnected:
		c.mu.Lock()
		c.connected = false
		next := c.state
		c.mu.Unlock()

		c.publish(Update{State: next, Connected: false})

	case connection.NoticeTransportError:
		// Recovered automatically by the manager; connectivity is the
		// only surface the consumer sees.
		c.logger.Debug("transport error", "error", n.Err, "close_code", n.CloseCode)
	}
}

func (c *Controller) handleEvent(in router.Inbound) {
	for _, obs := range c.observers {
		obs(in)
	}

	c.mu.Lock()
	next := session.Reduce(c.state, in.Event)
	c.state = next
	connected := c.connected
	c.mu.Unlock()

	update := Update{State: next, Event: in.Event, Connected: connected}

	switch e := in.Event.(type) {
	case router.ServerError:
		update.Notice = e.Message
	case router.AnswerSubmitted:
		if e.UserID == c.cfg.UserID {
			c.logger.Info("answer feedback", "correct", e.IsCorrect)
		}
	case router.ConnectionClosed:
		c.logger.Warn("session closed by server", "reason", e.Reason)
	}

	c.publish(update)
}

// bootstrapFetch runs the snapshot merge for one connected transition.
func (c *Controller) bootstrapFetch() {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	ev, err := c.boot.Snapshot(ctx)
	if err != nil {
		// An API failure is distinct from a transport failure: no retry
		// here and no effect on the connection.
		c.mu.Lock()
		next := c.state
		connected := c.connected
		c.mu.Unlock()
		c.publish(Update{State: next, Connected: connected, Notice: err.Error()})
		return
	}

	c.applyResync(ev)
}

// applyResync folds a snapshot through the exact same reducer as live
// push events. No separate merge path exists.
func (c *Controller) applyResync(ev router.SessionState) {
	c.mu.Lock()
	next := session.Reduce(c.state, ev)
	c.state = next
	connected := c.connected
	c.mu.Unlock()

	c.publish(Update{State: next, Event: ev, Connected: connected})
}

// publish pushes an update without blocking reconciliation; a consumer
// that stops draining loses updates rather than stalling the protocol.
func (c *Controller) publish(u Update) {
	select {
	case c.updates <- u:
	default:
		c.logger.Warn("update buffer full, dropping update")
	}
}
