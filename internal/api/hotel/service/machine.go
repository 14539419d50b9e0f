package hotelService

import (
	"HotelClaimBot/internal/entity"
	"strconv"
	"strings"
	"time"
)

type Question struct {
	Key    string
	Prompt string
}

type Effect int

const (
	EffectNone Effect = iota
	EffectSearch
	EffectDedupCheck
	EffectAppend
)

func (e Effect) String() string {
	switch e {
	case EffectSearch:
		return "search"
	case EffectDedupCheck:
		return "dedup_check"
	case EffectAppend:
		return "append"
	}
	return "none"
}

// Outcome is the result of one transition. When Effect is not EffectNone,
// Session is the input of the matching resolver and is not meant to be
// persisted as is.
type Outcome struct {
	Session  entity.DialogueSession
	Messages []entity.OutboundMessage
	Effect   Effect
}

// Machine holds the dialogue transitions. All of its methods are pure.
type Machine struct {
	questions []Question
}

func NewMachine(questions []Question) *Machine {
	return &Machine{questions: append([]Question(nil), questions...)}
}

func (m *Machine) QuestionKeys() []string {
	keys := make([]string, len(m.questions))
	for i, q := range m.questions {
		keys[i] = q.Key
	}
	return keys
}

func (m *Machine) Step(session entity.DialogueSession, ev entity.InboundEvent) Outcome {
	s := session.Clone()
	if s.State == "" || s.State == entity.StateDone {
		s = entity.NewDialogueSession(ev.UserID)
	}
	s.UserID = ev.UserID

	if ev.IsCancel() {
		return m.reply(idle(s.UserID), cancelledMessage(s.UserID), menuMessage(s.UserID))
	}
	if ev.IsRestart() {
		return m.reply(idle(s.UserID), menuMessage(s.UserID))
	}

	switch s.State {
	case entity.StateIdle:
		return m.stepIdle(s, ev)
	case entity.StateAwaitingSearchName, entity.StateAwaitingStartName:
		return m.stepName(s, ev)
	case entity.StateAwaitingSearchAddress:
		return m.stepSearchAddress(s, ev)
	case entity.StateAwaitingDisambiguation:
		return m.stepDisambiguation(s, ev)
	case entity.StateAwaitingStartAddress:
		return m.stepStartAddress(s, ev)
	case entity.StateConfirmDuplicate:
		return m.stepConfirmDuplicate(s, ev)
	case entity.StateAwaitingQuestionnaire:
		return m.stepQuestionnaire(s, ev)
	}

	return m.reply(idle(s.UserID), menuMessage(s.UserID))
}

func (m *Machine) stepIdle(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	if ev.Kind == entity.EventButton {
		switch ev.Payload {
		case entity.ButtonSearch:
			s.State = entity.StateAwaitingSearchName
			return m.reply(s, m.prompt(s))
		case entity.ButtonStart:
			s.State = entity.StateAwaitingStartName
			return m.reply(s, m.prompt(s))
		}
	}
	return m.reply(s, menuMessage(s.UserID))
}

func (m *Machine) stepName(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	text, ok := textInput(ev)
	if !ok {
		return m.reject(s)
	}

	s.PendingFields[entity.FieldName] = text
	if s.State == entity.StateAwaitingSearchName {
		s.State = entity.StateAwaitingSearchAddress
	} else {
		s.State = entity.StateAwaitingStartAddress
	}
	return m.reply(s, m.prompt(s))
}

func (m *Machine) stepSearchAddress(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	text, ok := textInput(ev)
	if !ok {
		return m.reject(s)
	}

	s.PendingFields[entity.FieldAddress] = text
	return Outcome{Session: s, Effect: EffectSearch}
}

func (m *Machine) stepStartAddress(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	text, ok := textInput(ev)
	if !ok {
		return m.reject(s)
	}

	s.PendingFields[entity.FieldAddress] = text
	return Outcome{Session: s, Effect: EffectDedupCheck}
}

func (m *Machine) stepDisambiguation(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	if ev.Kind == entity.EventButton && ev.Payload == entity.ButtonNone {
		return m.notFound(s)
	}

	n, ok := selection(ev)
	if !ok || n < 1 || n > len(s.Candidates) {
		return m.reject(s)
	}

	chosen := s.Candidates[n-1]
	return m.reply(done(s.UserID), matchMessage(s.UserID, chosen.Hotel), menuMessage(s.UserID))
}

func (m *Machine) stepConfirmDuplicate(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	if ev.Kind != entity.EventButton {
		return m.reject(s)
	}

	switch ev.Payload {
	case entity.ButtonReuse:
		existing := s.Candidates[0]
		return m.reply(done(s.UserID), matchMessage(s.UserID, existing.Hotel), menuMessage(s.UserID))
	case entity.ButtonContinue:
		s.Confirmed = true
		s.Candidates = nil
		return m.beginQuestionnaire(s)
	}
	return m.reject(s)
}

func (m *Machine) stepQuestionnaire(s entity.DialogueSession, ev entity.InboundEvent) Outcome {
	if s.Question < 0 || s.Question >= len(m.questions) {
		return m.reply(idle(s.UserID), menuMessage(s.UserID))
	}

	text, ok := textInput(ev)
	if !ok {
		return m.reject(s)
	}

	s.PendingFields[m.questions[s.Question].Key] = text
	if s.Question+1 < len(m.questions) {
		s.Question++
		return m.reply(s, m.prompt(s))
	}
	return Outcome{Session: s, Effect: EffectAppend}
}

// beginQuestionnaire moves to the first unanswered question, or requests the
// append when every answer is already present.
func (m *Machine) beginQuestionnaire(s entity.DialogueSession) Outcome {
	for i, q := range m.questions {
		if _, answered := s.PendingFields[q.Key]; answered {
			continue
		}
		s.State = entity.StateAwaitingQuestionnaire
		s.Question = i
		return m.reply(s, m.prompt(s))
	}
	return Outcome{Session: s, Effect: EffectAppend}
}

// ResolveSearch finishes a search with the candidates above the match
// threshold, best first.
func (m *Machine) ResolveSearch(s entity.DialogueSession, candidates []entity.Candidate) Outcome {
	switch len(candidates) {
	case 0:
		return m.notFound(s)
	case 1:
		return m.reply(done(s.UserID), matchMessage(s.UserID, candidates[0].Hotel), menuMessage(s.UserID))
	}

	s = s.Clone()
	s.State = entity.StateAwaitingDisambiguation
	s.Candidates = append([]entity.Candidate(nil), candidates...)
	return m.reply(s, m.prompt(s))
}

// ResolveDedup finishes a dedup check. It is also used when the recheck
// before an append finds a record that appeared in the meantime; the
// collected answers are kept in that case.
func (m *Machine) ResolveDedup(s entity.DialogueSession, duplicates []entity.Candidate) Outcome {
	s = s.Clone()
	if len(duplicates) == 0 {
		return m.beginQuestionnaire(s)
	}

	keep := map[string]string{
		entity.FieldName:    s.PendingFields[entity.FieldName],
		entity.FieldAddress: s.PendingFields[entity.FieldAddress],
	}
	if m.allAnswered(s) {
		for _, q := range m.questions {
			keep[q.Key] = s.PendingFields[q.Key]
		}
	}

	s.State = entity.StateConfirmDuplicate
	s.Question = 0
	s.PendingFields = keep
	s.Candidates = append([]entity.Candidate(nil), duplicates...)
	return m.reply(s, m.prompt(s))
}

func (m *Machine) Appended(s entity.DialogueSession, record entity.Hotel) Outcome {
	return m.reply(done(s.UserID), savedMessage(s.UserID, record), menuMessage(s.UserID))
}

// AppendFailed keeps prev so the user can resend the last answer.
func (m *Machine) AppendFailed(prev entity.DialogueSession) Outcome {
	return Outcome{
		Session:  prev.Clone(),
		Messages: []entity.OutboundMessage{resubmitMessage(prev.UserID), m.prompt(prev)},
	}
}

// Unavailable keeps prev and asks the user to retry later.
func (m *Machine) Unavailable(prev entity.DialogueSession) Outcome {
	return Outcome{
		Session:  prev.Clone(),
		Messages: []entity.OutboundMessage{unavailableMessage(prev.UserID)},
	}
}

// BuildRecord turns a completed session into the row to append.
func (m *Machine) BuildRecord(s entity.DialogueSession, agent string, now time.Time) entity.Hotel {
	fields := make(map[string]string, len(m.questions)+2)
	for _, q := range m.questions {
		if v, ok := s.PendingFields[q.Key]; ok {
			fields[q.Key] = v
		}
	}
	fields[entity.HotelFieldAgent] = agent
	if s.Confirmed {
		fields[entity.HotelFieldDecision] = entity.DecisionConfirmedDuplicate
	} else {
		fields[entity.HotelFieldDecision] = entity.DecisionNewLead
	}

	return entity.Hotel{
		HotelName: s.PendingFields[entity.FieldName],
		Address:   s.PendingFields[entity.FieldAddress],
		Fields:    fields,
		CreatedAt: now,
	}
}

func (m *Machine) allAnswered(s entity.DialogueSession) bool {
	for _, q := range m.questions {
		if _, ok := s.PendingFields[q.Key]; !ok {
			return false
		}
	}
	return true
}

func (m *Machine) notFound(s entity.DialogueSession) Outcome {
	return m.reply(idle(s.UserID), notFoundMessage(s.UserID, s.PendingFields[entity.FieldName]))
}

func (m *Machine) reject(s entity.DialogueSession) Outcome {
	return m.reply(s, invalidInputMessage(s.UserID), m.prompt(s))
}

func (m *Machine) reply(s entity.DialogueSession, messages ...entity.OutboundMessage) Outcome {
	return Outcome{Session: s, Messages: messages}
}

func idle(userID string) entity.DialogueSession {
	return entity.NewDialogueSession(userID)
}

func done(userID string) entity.DialogueSession {
	s := entity.NewDialogueSession(userID)
	s.State = entity.StateDone
	return s
}

func textInput(ev entity.InboundEvent) (string, bool) {
	if ev.Kind != entity.EventText {
		return "", false
	}
	text := strings.TrimSpace(ev.Payload)
	return text, text != ""
}

// selection accepts a pick:<n> button or the number typed as text.
func selection(ev entity.InboundEvent) (int, bool) {
	raw := strings.TrimSpace(ev.Payload)
	switch ev.Kind {
	case entity.EventButton:
		if !strings.HasPrefix(raw, entity.ButtonPickPrefix) {
			return 0, false
		}
		raw = strings.TrimPrefix(raw, entity.ButtonPickPrefix)
	case entity.EventText:
		raw = strings.TrimSuffix(raw, ".")
	default:
		return 0, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
