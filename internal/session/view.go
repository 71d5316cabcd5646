package session

import "github.com/rkranz/quizlive/internal/model"

// ActiveQuestion derives the displayed question from a session. It returns
// nil unless the session is active with a non-empty question list. An
// index outside the list is clamped into range rather than dereferenced,
// so display never reads out of bounds.
func ActiveQuestion(s *model.Session) *model.Question {
	if s == nil || s.Status != model.StatusActive || len(s.Questions) == 0 {
		return nil
	}

	idx := s.CurrentQuestion
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.Questions)-1 {
		idx = len(s.Questions) - 1
	}

	q := s.Questions[idx]
	return &q
}
