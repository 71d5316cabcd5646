package router

import (
	"github.com/rkranz/quizlive/internal/model"
)

// Wire tags for application frames. Every inbound frame carries exactly
// one of these in its "type" field; "pong" is consumed internally.
const (
	TypeSessionState      = "session_state"
	TypeSessionStarted    = "session_started"
	TypeNextQuestion      = "next_question"
	TypeAnswerSubmitted   = "answer_submitted"
	TypeQuizCompleted     = "quiz_completed"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeConnectionClosed  = "connection_closed"
	TypeError             = "error"
	typePong              = "pong"
)

// Event is one typed protocol event. The set of implementations is closed:
// reducers switch over it exhaustively and unknown wire tags are rejected
// at decode time rather than surfaced as an opaque variant.
type Event interface {
	// Kind returns the wire tag the event was decoded from.
	Kind() string
}

// SessionState is a full resync. It is authoritative for status and the
// current question index; questions and participants replace prior state
// only when present (see the session package for the exact merge rules).
type SessionState struct {
	SessionID       string              `json:"session_id"`
	QuizID          string              `json:"quiz_id"`
	Status          model.SessionStatus `json:"status"`
	CurrentQuestion int                 `json:"current_question"`
	Questions       []model.Question    `json:"questions"`
	Participants    []string            `json:"participants"`
	StartTime       string              `json:"start_time"`
}

func (SessionState) Kind() string { return TypeSessionState }

// SessionStarted moves an existing session to active and optionally
// carries the first question inline.
type SessionStarted struct {
	CurrentQuestion *model.Question `json:"current_question"`
	Participants    []string        `json:"participants"`
}

func (SessionStarted) Kind() string { return TypeSessionStarted }

// NextQuestion advances to a new active question.
type NextQuestion struct {
	Question *model.Question `json:"question"`
}

func (NextQuestion) Kind() string { return TypeNextQuestion }

// AnswerSubmitted reports another participant's (or our own) submission.
// Correctness feedback is informational; the leaderboard, when present,
// replaces the prior one wholesale.
type AnswerSubmitted struct {
	UserID      string                   `json:"user_id"`
	IsCorrect   bool                     `json:"is_correct"`
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

func (AnswerSubmitted) Kind() string { return TypeAnswerSubmitted }

// QuizCompleted terminates the quiz.
type QuizCompleted struct {
	FinalLeaderboard []model.LeaderboardEntry `json:"final_leaderboard"`
}

func (QuizCompleted) Kind() string { return TypeQuizCompleted }

// ParticipantJoined announces a new participant. When the server attaches
// the authoritative participant list it replaces local membership
// wholesale; otherwise the single user ID is added incrementally.
type ParticipantJoined struct {
	UserID       string   `json:"user_id"`
	Participants []string `json:"participants"`
}

func (ParticipantJoined) Kind() string { return TypeParticipantJoined }

// ParticipantLeft mirrors ParticipantJoined for departures.
type ParticipantLeft struct {
	UserID       string   `json:"user_id"`
	Participants []string `json:"participants"`
}

func (ParticipantLeft) Kind() string { return TypeParticipantLeft }

// ConnectionClosed means the session is authoritatively over server-side.
// This is terminal at the application level, distinct from a transport
// disconnect: reconnecting will not bring the session back.
type ConnectionClosed struct {
	Reason string `json:"reason"`
}

func (ConnectionClosed) Kind() string { return TypeConnectionClosed }

// ServerError is a recoverable, user-visible error pushed by the server.
// It never mutates session state.
type ServerError struct {
	Message string `json:"error"`
}

func (ServerError) Kind() string { return TypeError }
