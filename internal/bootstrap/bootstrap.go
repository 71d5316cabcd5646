// Package bootstrap implements the Bootstrap Coordinator: the initial
// snapshot fetch performed on every successful connect, merged into the
// reconciler through the same path as a live session_state event.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/rkranz/quizlive/internal/model"
	"github.com/rkranz/quizlive/internal/router"
)

// SessionFetcher is the snapshot side of the REST collaborator.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// Coordinator fetches a session snapshot at connect time. Push events may
// race the snapshot in either order; because the snapshot is expressed as
// a session_state event and folded by the same reducer, whichever arrives
// later still produces a consistent authoritative state.
type Coordinator struct {
	fetcher   SessionFetcher
	sessionID string
	logger    *slog.Logger
}

// New creates a Coordinator for one session.
func New(fetcher SessionFetcher, sessionID string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher:   fetcher,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Snapshot fetches the session and returns it as a resync event. A fetch
// failure is an API-level error: it does not retry and must not affect the
// transport or trigger reconnection.
func (c *Coordinator) Snapshot(ctx context.Context) (router.SessionState, error) {
	s, err := c.fetcher.GetSession(ctx, c.sessionID)
	if err != nil {
		c.logger.Warn("snapshot fetch failed", "session_id", c.sessionID, "error", err)
		return router.SessionState{}, err
	}

	return AsEvent(s), nil
}

// AsEvent converts a REST snapshot into the resync event shape so both
// merge paths are literally the same function.
func AsEvent(s *model.Session) router.SessionState {
	return router.SessionState{
		SessionID:       s.ID,
		QuizID:          s.QuizID,
		Status:          s.Status,
		CurrentQuestion: s.CurrentQuestion,
		Questions:       s.Questions,
		Participants:    s.Participants,
		StartTime:       s.StartTime,
	}
}
