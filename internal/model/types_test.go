package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSession_Clone(t *testing.T) {
	orig := &Session{
		ID:              "sess-1",
		QuizID:          "quiz-1",
		Status:          StatusActive,
		CurrentQuestion: 1,
		Questions: []Question{
			{ID: "q1", Options: []string{"a", "b"}},
		},
		Participants: []string{"alice", "bob"},
	}

	clone := orig.Clone()

	if !reflect.DeepEqual(clone, orig) {
		t.Fatalf("clone differs: %+v vs %+v", clone, orig)
	}

	clone.Participants[0] = "mallory"
	clone.Questions[0].Options[0] = "z"
	clone.Status = StatusCompleted

	if orig.Participants[0] != "alice" {
		t.Error("clone shares participants backing array")
	}
	if orig.Questions[0].Options[0] != "a" {
		t.Error("clone shares question options backing array")
	}
	if orig.Status != StatusActive {
		t.Error("clone shares status")
	}
}

func TestSession_CloneNil(t *testing.T) {
	var s *Session
	if s.Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestSession_HasParticipant(t *testing.T) {
	s := &Session{Participants: []string{"alice", "bob"}}

	if !s.HasParticipant("alice") {
		t.Error("alice should be present")
	}
	if s.HasParticipant("carol") {
		t.Error("carol should be absent")
	}

	var nilSession *Session
	if nilSession.HasParticipant("alice") {
		t.Error("nil session has no participants")
	}
}

func TestQuestion_WireFormat(t *testing.T) {
	data := `{"id":"q1","text":"Capital of France?","type":"multiple_choice","options":["Paris","Rome"],"points":10,"time_limit":30}`

	var q Question
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if q.Kind != MultipleChoice {
		t.Errorf("Kind = %q, want multiple_choice", q.Kind)
	}
	if q.TimeLimit != 30 || q.Points != 10 {
		t.Errorf("TimeLimit/Points = %d/%d", q.TimeLimit, q.Points)
	}
}

func TestAnswer_WireFormat(t *testing.T) {
	a := Answer{
		SessionID:  "sess-1",
		QuestionID: "q1",
		UserID:     "alice",
		Answer:     "Paris",
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	json.Unmarshal(data, &m)

	for _, key := range []string{"session_id", "question_id", "user_id", "answer"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing wire field %q in %s", key, data)
		}
	}
}
