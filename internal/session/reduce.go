package session

import (
	"github.com/rkranz/quizlive/internal/model"
	"github.com/rkranz/quizlive/internal/router"
)

// State is the reconciled local view of one quiz run. It is treated as an
// immutable value: Reduce returns a new State and never mutates its input,
// including the Session and slices it references.
type State struct {
	Session *model.Session

	// Current is the active question, nil when there is none. A nil
	// Current while the session is active is an explicit "no current
	// question" condition, not a fallback to the first question.
	Current *model.Question

	// TimeLeft is the countdown in seconds, reset to the question's time
	// limit whenever a question becomes active.
	TimeLeft int

	// Selected is the locally chosen answer for the current question.
	// It clears whenever the active question changes.
	Selected string

	Leaderboard []model.LeaderboardEntry

	// Inactive marks the session as authoritatively over server-side.
	// Unlike a transport disconnect this is terminal: reconnecting will
	// not revive the session.
	Inactive       bool
	InactiveReason string
}

// Reduce folds one event into the prior state. Events arrive in transport
// order; unknown kinds never reach here (the dispatcher rejects them).
func Reduce(prev State, ev router.Event) State {
	switch e := ev.(type) {
	case router.SessionState:
		return reduceSessionState(prev, e)
	case router.SessionStarted:
		return reduceSessionStarted(prev, e)
	case router.NextQuestion:
		return reduceNextQuestion(prev, e)
	case router.AnswerSubmitted:
		return reduceAnswerSubmitted(prev, e)
	case router.QuizCompleted:
		return reduceQuizCompleted(prev, e)
	case router.ParticipantJoined:
		return reduceParticipantChange(prev, e.Participants, e.UserID, true)
	case router.ParticipantLeft:
		return reduceParticipantChange(prev, e.Participants, e.UserID, false)
	case router.ConnectionClosed:
		next := prev
		next.Inactive = true
		next.InactiveReason = e.Reason
		return next
	case router.ServerError:
		// Surfaced to the consumer by the controller; no state change.
		return prev
	default:
		return prev
	}
}

// reduceSessionState applies a full resync. The event is authoritative for
// status and question index; questions replace prior state only when the
// incoming list is non-empty; participants replace wholesale when present.
// With no prior session the event alone constructs one.
func reduceSessionState(prev State, e router.SessionState) State {
	next := prev

	if prev.Session == nil {
		next.Session = &model.Session{
			ID:              e.SessionID,
			QuizID:          e.QuizID,
			Status:          e.Status,
			CurrentQuestion: e.CurrentQuestion,
			Questions:       e.Questions,
			Participants:    e.Participants,
			StartTime:       e.StartTime,
		}
	} else {
		s := prev.Session.Clone()
		s.Status = e.Status
		s.CurrentQuestion = e.CurrentQuestion
		if len(e.Questions) > 0 {
			s.Questions = e.Questions
		}
		if e.Participants != nil {
			s.Participants = e.Participants
		}
		next.Session = s
	}

	if q := ActiveQuestion(next.Session); q != nil {
		next.Current = q
		next.TimeLeft = q.TimeLimit
	} else if next.Session.Status != model.StatusActive {
		next.Current = nil
	}

	return next
}

// reduceSessionStarted requires an existing session; without one the event
// is dropped and a later resync constructs the state instead. Incremental
// events only move status forward, so a completed session stays completed.
func reduceSessionStarted(prev State, e router.SessionStarted) State {
	if prev.Session == nil || prev.Session.Status == model.StatusCompleted {
		return prev
	}

	next := prev
	s := prev.Session.Clone()
	s.Status = model.StatusActive
	s.CurrentQuestion = 0
	if e.Participants != nil {
		s.Participants = e.Participants
	}
	next.Session = s

	if e.CurrentQuestion != nil {
		next.Current = e.CurrentQuestion
		next.TimeLeft = e.CurrentQuestion.TimeLimit
		next.Selected = ""
	}

	return next
}

func reduceNextQuestion(prev State, e router.NextQuestion) State {
	if e.Question == nil {
		return prev
	}

	next := prev
	next.Current = e.Question
	next.TimeLeft = e.Question.TimeLimit
	next.Selected = ""
	return next
}

func reduceAnswerSubmitted(prev State, e router.AnswerSubmitted) State {
	if e.Leaderboard == nil {
		return prev
	}

	next := prev
	next.Leaderboard = e.Leaderboard
	return next
}

func reduceQuizCompleted(prev State, e router.QuizCompleted) State {
	next := prev

	if e.FinalLeaderboard != nil {
		next.Leaderboard = e.FinalLeaderboard
	}
	if prev.Session != nil {
		s := prev.Session.Clone()
		s.Status = model.StatusCompleted
		next.Session = s
	}
	return next
}

// reduceParticipantChange prefers the authoritative list when the server
// attaches one. The incremental single-ID fallback can drift from server
// truth across a reconnect gap, which is why the bootstrap path refetches
// a snapshot on every reconnection.
func reduceParticipantChange(prev State, list []string, userID string, joined bool) State {
	if prev.Session == nil {
		return prev
	}

	next := prev
	s := prev.Session.Clone()

	switch {
	case list != nil:
		s.Participants = list
	case joined:
		if !s.HasParticipant(userID) {
			s.Participants = append(s.Participants, userID)
		}
	default:
		for i, p := range s.Participants {
			if p == userID {
				s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
				break
			}
		}
	}

	next.Session = s
	return next
}
