// Package recorder archives inbound protocol events to Postgres in
// batches. It observes the event stream; nothing is ever read back, so
// session state still lives and dies with the process.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rkranz/quizlive/internal/router"
)

const insertEventSQL = `
	INSERT INTO session_events (id, session_id, kind, payload, received_at)
	VALUES ($1, $2, $3, $4, $5)
`

// BatchSender is the slice of pgxpool.Pool the recorder needs.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Recorder batches event rows and flushes them on size or interval.
type Recorder struct {
	cfg    Config
	db     BatchSender
	logger *slog.Logger

	input chan row

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a Recorder writing through the given batch sender.
func New(cfg Config, db BatchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan row, cfg.BufferSize),
	}
}

// Start begins the batching loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("event recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop flushes pending rows and shuts down.
func (r *Recorder) Stop(ctx context.Context) error {
	close(r.input)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Record accepts one inbound event for archival. It never blocks the
// reconciliation path: under backpressure rows are shed and counted.
func (r *Recorder) Record(sessionID string, in router.Inbound) {
	entry := row{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Kind:       in.Event.Kind(),
		Payload:    in.Raw,
		ReceivedAt: in.ReceivedAt,
	}

	select {
	case r.input <- entry:
		r.count(func(s *Stats) { s.Recorded++ })
	default:
		r.count(func(s *Stats) { s.Dropped++ })
		r.logger.Warn("recorder buffer full, dropping event", "kind", entry.Kind)
	}
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]row, 0, r.cfg.BatchSize)

	for {
		select {
		case entry, ok := <-r.input:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= r.cfg.BatchSize {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// flush writes one batch. A failed flush drops the batch: the archive is
// best effort and must not wedge the client.
func (r *Recorder) flush(batch []row) {
	if len(batch) == 0 {
		return
	}

	b := &pgx.Batch{}
	for _, entry := range batch {
		b.Queue(insertEventSQL,
			entry.ID,
			entry.SessionID,
			entry.Kind,
			entry.Payload,
			entry.ReceivedAt,
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := r.db.SendBatch(ctx, b)
	err := results.Close()
	if err != nil {
		r.count(func(s *Stats) { s.Errors++ })
		r.logger.Warn("failed to flush event batch", "rows", len(batch), "error", err)
		return
	}

	r.count(func(s *Stats) { s.Flushed += int64(len(batch)) })
	r.logger.Debug("flushed event batch", "rows", len(batch))
}

func (r *Recorder) count(f func(*Stats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}
