package entity

import (
	"fmt"
	"time"
)

type DialogueState string

const (
	StateIdle                   DialogueState = "IDLE"
	StateAwaitingSearchName     DialogueState = "AWAITING_SEARCH_NAME"
	StateAwaitingSearchAddress  DialogueState = "AWAITING_SEARCH_ADDRESS"
	StateAwaitingDisambiguation DialogueState = "AWAITING_DISAMBIGUATION"
	StateAwaitingStartName      DialogueState = "AWAITING_START_NAME"
	StateAwaitingStartAddress   DialogueState = "AWAITING_START_ADDRESS"
	StateConfirmDuplicate       DialogueState = "CONFIRM_DUPLICATE"
	StateAwaitingQuestionnaire  DialogueState = "AWAITING_QUESTIONNAIRE"
	StateDone                   DialogueState = "DONE"
)

const (
	FieldName    = "name"
	FieldAddress = "address"
)

type DialogueSession struct {
	UserID        string            `json:"user_id"`
	State         DialogueState     `json:"state"`
	Question      int               `json:"question"`
	PendingFields map[string]string `json:"pending_fields"`
	Candidates    []Candidate       `json:"candidates,omitempty"`
	Confirmed     bool              `json:"confirmed,omitempty"`
	LastActivity  time.Time         `json:"last_activity"`
}

func NewDialogueSession(userID string) DialogueSession {
	return DialogueSession{
		UserID:        userID,
		State:         StateIdle,
		PendingFields: map[string]string{},
	}
}

// Clone returns a deep copy so transitions never alias the caller's maps.
func (s DialogueSession) Clone() DialogueSession {
	out := s
	out.PendingFields = make(map[string]string, len(s.PendingFields))
	for k, v := range s.PendingFields {
		out.PendingFields[k] = v
	}
	if s.Candidates != nil {
		out.Candidates = make([]Candidate, len(s.Candidates))
		copy(out.Candidates, s.Candidates)
	}
	return out
}

func (s DialogueSession) StateLabel() string {
	if s.State == StateAwaitingQuestionnaire {
		return fmt.Sprintf("%s[%d]", s.State, s.Question)
	}
	return string(s.State)
}

// Validate checks that the populated pending fields agree with the state.
// questionKeys is the ordered questionnaire.
func (s DialogueSession) Validate(questionKeys []string) error {
	has := func(k string) bool {
		_, ok := s.PendingFields[k]
		return ok
	}
	answered := 0
	for _, k := range questionKeys {
		if has(k) {
			answered++
		}
	}

	expectKeys := func(keys ...string) error {
		if len(s.PendingFields) != len(keys) {
			return fmt.Errorf("state %s expects fields %v, got %d fields", s.StateLabel(), keys, len(s.PendingFields))
		}
		for _, k := range keys {
			if !has(k) {
				return fmt.Errorf("state %s is missing field %q", s.StateLabel(), k)
			}
		}
		return nil
	}

	switch s.State {
	case StateIdle, StateDone, StateAwaitingSearchName, StateAwaitingStartName:
		return expectKeys()
	case StateAwaitingSearchAddress, StateAwaitingStartAddress:
		return expectKeys(FieldName)
	case StateAwaitingDisambiguation:
		if len(s.Candidates) == 0 {
			return fmt.Errorf("state %s has no candidates", s.State)
		}
		return expectKeys(FieldName, FieldAddress)
	case StateConfirmDuplicate:
		if len(s.Candidates) == 0 {
			return fmt.Errorf("state %s has no candidates", s.State)
		}
		if answered == len(questionKeys) {
			return expectKeys(append([]string{FieldName, FieldAddress}, questionKeys...)...)
		}
		return expectKeys(FieldName, FieldAddress)
	case StateAwaitingQuestionnaire:
		if s.Question < 0 || s.Question >= len(questionKeys) {
			return fmt.Errorf("question index %d out of range", s.Question)
		}
		return expectKeys(append([]string{FieldName, FieldAddress}, questionKeys[:s.Question]...)...)
	}

	return fmt.Errorf("unknown state %q", s.State)
}
