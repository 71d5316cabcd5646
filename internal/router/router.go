package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rkranz/quizlive/internal/connection"
)

// ErrUnknownType is returned by decode when a frame carries a tag outside
// the closed event set. Unknown tags are counted so protocol drift shows
// up in stats instead of vanishing silently.
var ErrUnknownType = errors.New("unknown message type")

// Inbound pairs a decoded event with its receive metadata. Raw keeps the
// verbatim frame bytes for archival.
type Inbound struct {
	Event      Event
	Raw        []byte
	ReceivedAt time.Time
}

// Stats contains runtime counters.
type Stats struct {
	FramesReceived int64
	EventsRouted   int64
	PongsConsumed  int64
	ParseErrors    int64
	UnknownTypes   int64
}

// Router is the Message Dispatcher. It consumes raw frames from the
// Connection Manager and publishes typed events, in arrival order, to a
// single downstream consumer.
type Router struct {
	logger *slog.Logger

	input  <-chan connection.Frame
	events chan Inbound

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// New creates a Router reading from the given frame stream.
func New(input <-chan connection.Frame, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger,
		input:  input,
		events: make(chan Inbound, 64),
	}
}

// Start begins dispatching frames.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.dispatchLoop()

	return nil
}

// Stop shuts the dispatcher down and closes the event stream.
func (r *Router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("message dispatcher stop timed out")
	}

	close(r.events)
	return nil
}

// Events returns the typed event stream. Delivery preserves frame arrival
// order; the channel is closed by Stop.
func (r *Router) Events() <-chan Inbound {
	return r.events
}

// Stats returns current counters.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// dispatchLoop is the single dispatching goroutine.
func (r *Router) dispatchLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case frame, ok := <-r.input:
			if !ok {
				return
			}
			r.dispatch(frame)
		}
	}
}

// dispatch decodes one frame and publishes the result. Malformed frames
// are dropped with a diagnostic; subsequent frames are unaffected.
func (r *Router) dispatch(frame connection.Frame) {
	r.count(func(s *Stats) { s.FramesReceived++ })

	ev, err := decode(frame.Data)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			r.logger.Warn("unrecognized frame type", "data", string(frame.Data))
			r.count(func(s *Stats) { s.UnknownTypes++ })
		} else {
			r.logger.Warn("failed to decode frame", "error", err)
			r.count(func(s *Stats) { s.ParseErrors++ })
		}
		return
	}
	if ev == nil {
		// Heartbeat reply, consumed here.
		r.count(func(s *Stats) { s.PongsConsumed++ })
		return
	}

	in := Inbound{
		Event:      ev,
		Raw:        frame.Data,
		ReceivedAt: frame.ReceivedAt,
	}

	// Blocking send: ordering matters more than shedding load here, and
	// the consumer is the reconciler, which never blocks for long.
	select {
	case r.events <- in:
		r.count(func(s *Stats) { s.EventsRouted++ })
	case <-r.ctx.Done():
	}
}

func (r *Router) count(f func(*Stats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

// envelope carries only the discriminant.
type envelope struct {
	Type string `json:"type"`
}

// decode turns raw frame bytes into a typed event. A nil event with nil
// error means the frame was a heartbeat reply.
func decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case typePong:
		return nil, nil
	case TypeSessionState:
		var ev SessionState
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeSessionStarted:
		var ev SessionStarted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeNextQuestion:
		var ev NextQuestion
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeAnswerSubmitted:
		var ev AnswerSubmitted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeQuizCompleted:
		var ev QuizCompleted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeParticipantJoined:
		var ev ParticipantJoined
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeParticipantLeft:
		var ev ParticipantLeft
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeConnectionClosed:
		var ev ConnectionClosed
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeError:
		var ev ServerError
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, ErrUnknownType
	}
}
