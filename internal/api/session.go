package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rkranz/quizlive/internal/model"
)

// GetSession fetches the full session representation by ID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	path := fmt.Sprintf("/quizzes/sessions/%s", sessionID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched session snapshot",
		"session_id", session.ID,
		"status", session.Status,
		"questions", len(session.Questions),
		"participants", len(session.Participants),
	)

	return &session, nil
}

// SubmitAnswer submits one answer for the session's current question.
func (c *Client) SubmitAnswer(ctx context.Context, answer model.Answer) error {
	path := fmt.Sprintf("/quizzes/sessions/%s/submit", answer.SessionID)
	return c.doRequest(ctx, http.MethodPost, path, answer, nil)
}

// StartSession asks the service to start the session. Only the session
// admin may do this; anyone else gets a structured error back.
func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/quizzes/sessions/%s/start", sessionID)
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}
