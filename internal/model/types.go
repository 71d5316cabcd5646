package model

// SessionStatus describes the lifecycle phase of a quiz session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// QuestionKind describes the answer format of a question.
type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	TrueFalse      QuestionKind = "true_false"
)

// Question is a single quiz question as delivered by the server.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	TimeLimit     int          `json:"time_limit"` // seconds
}

// LeaderboardEntry is one participant's score. Leaderboards are always
// replaced wholesale on receipt, never merged entry by entry.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// Session is the authoritative local representation of one quiz run.
//
// Participants is unique and insertion-ordered: membership is a set but
// iteration order stays stable for display. CurrentQuestion is only
// meaningful while Status is active and Questions is non-empty.
type Session struct {
	ID              string        `json:"id"`
	QuizID          string        `json:"quiz_id"`
	Status          SessionStatus `json:"status"`
	CurrentQuestion int           `json:"current_question"`
	Questions       []Question    `json:"questions"`
	Participants    []string      `json:"participants"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time,omitempty"`
}

// Answer is the payload submitted for one question.
type Answer struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Answer     string `json:"answer"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Clone returns a deep copy of the session. Reducers copy before they
// mutate so prior states handed to consumers stay immutable.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := *s
	if s.Questions != nil {
		next.Questions = make([]Question, len(s.Questions))
		copy(next.Questions, s.Questions)
		for i := range next.Questions {
			if q := s.Questions[i].Options; q != nil {
				next.Questions[i].Options = make([]string, len(q))
				copy(next.Questions[i].Options, q)
			}
		}
	}
	if s.Participants != nil {
		next.Participants = make([]string, len(s.Participants))
		copy(next.Participants, s.Participants)
	}
	return &next
}

// HasParticipant reports set membership.
func (s *Session) HasParticipant(userID string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
