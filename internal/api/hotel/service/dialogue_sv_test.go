package hotelService

import (
	"HotelClaimBot/internal/api/hotel"
	hotelRepository "HotelClaimBot/internal/api/hotel/repository"
	"HotelClaimBot/internal/entity"
	"HotelClaimBot/pkg/fuzzy"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	mu         sync.Mutex
	hotels     []entity.Hotel
	fetchErr   error
	appendErrs []error
	appended   []entity.Hotel
	// racing rows land in the store together with the next reported conflict,
	// as if another writer committed them first.
	racing []entity.Hotel
}

func (f *fakeRecords) FetchAll(context.Context) ([]entity.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Hotel(nil), f.hotels...), f.fetchErr
}

func (f *fakeRecords) Append(_ context.Context, h entity.Hotel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.appendErrs) > 0 {
		err := f.appendErrs[0]
		f.appendErrs = f.appendErrs[1:]
		if err != nil {
			for _, r := range f.racing {
				r.Row = len(f.hotels) + 1
				f.hotels = append(f.hotels, r)
			}
			f.racing = nil
			return err
		}
	}
	h.Row = len(f.hotels) + 1
	f.hotels = append(f.hotels, h)
	f.appended = append(f.appended, h)
	return nil
}

func (f *fakeRecords) appendedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

type brokenSessions struct{}

func (brokenSessions) Get(context.Context, string) (entity.DialogueSession, bool, error) {
	return entity.DialogueSession{}, false, fmt.Errorf("%w: dial tcp: refused", hotel.ErrSessionUnavailable)
}

func (brokenSessions) Put(context.Context, entity.DialogueSession) error {
	return hotel.ErrSessionUnavailable
}

func (brokenSessions) Clear(context.Context, string) error {
	return hotel.ErrSessionUnavailable
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type testEnv struct {
	svc       IHotelService
	records   *fakeRecords
	sessions  hotelRepository.SessionStore
	publisher *recordingPublisher
	hook      *test.Hook
}

func seedHotels() []entity.Hotel {
	rows := [][2]string{
		{"Seaside Inn", "12 Bay Street"},
		{"Hotel Tbilisi", "5 Rustaveli Avenue"},
		{"Mountain Lodge", "1 Peak Road"},
	}
	hotels := make([]entity.Hotel, len(rows))
	for i, r := range rows {
		hotels[i] = entity.Hotel{HotelName: r[0], Address: r[1], Fields: map[string]string{}, Row: i + 1}
	}
	hotels[0].Fields["status"] = "done"
	return hotels
}

func newTestEnv(t *testing.T, records *fakeRecords) *testEnv {
	t.Helper()

	log, hook := test.NewNullLogger()
	sessions := hotelRepository.NewMemorySessionStore(time.Hour, nil)
	publisher := &recordingPublisher{}

	svc := NewHotelService(
		log,
		records,
		sessions,
		fuzzy.New(fuzzy.DefaultConfig()),
		publisher,
		&HotelConfig{Questions: DefaultQuestions(), StoreTimeout: time.Second},
		nil,
	)

	return &testEnv{svc: svc, records: records, sessions: sessions, publisher: publisher, hook: hook}
}

func (e *testEnv) send(t *testing.T, ev entity.InboundEvent) []entity.OutboundMessage {
	t.Helper()
	msgs, err := e.svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	return msgs
}

func (e *testEnv) session(t *testing.T, userID string) (entity.DialogueSession, bool) {
	t.Helper()
	s, ok, err := e.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return s, ok
}

func joined(msgs []entity.OutboundMessage) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Text
	}
	return strings.Join(parts, "\n")
}

func hasButton(msgs []entity.OutboundMessage, payload string) bool {
	for _, m := range msgs {
		for _, b := range m.Buttons {
			if b.Payload == payload {
				return true
			}
		}
	}
	return false
}

func TestSearchHit(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	env.send(t, button("u1", entity.ButtonSearch))
	env.send(t, text("u1", "Seaside Inn"))
	msgs := env.send(t, text("u1", "12 Bay St"))

	assert.Contains(t, joined(msgs), "Seaside Inn")
	assert.Contains(t, joined(msgs), "12 Bay Street")
	assert.Contains(t, joined(msgs), "already surveyed")

	_, ok := env.session(t, "u1")
	assert.False(t, ok)
	assert.Zero(t, env.records.appendedCount())
}

func TestSearchMissThenStart(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	env.send(t, button("u1", entity.ButtonSearch))
	env.send(t, text("u1", "Grand Budapest"))
	msgs := env.send(t, text("u1", "Zubrowka Alpine Spa"))
	assert.Contains(t, joined(msgs), "No hotel matching")
	assert.True(t, hasButton(msgs, entity.ButtonStart))

	msgs = env.send(t, entity.InboundEvent{UserID: "u1", Username: "nino", Kind: entity.EventButton, Payload: entity.ButtonStart})
	assert.Contains(t, joined(msgs), "name of the new hotel")

	env.send(t, text("u1", "Grand Budapest"))
	msgs = env.send(t, text("u1", "Zubrowka Alpine Spa"))
	assert.Contains(t, joined(msgs), "(1/3)")

	env.send(t, text("u1", "120"))
	env.send(t, text("u1", "Gustave"))
	msgs = env.send(t, entity.InboundEvent{UserID: "u1", Username: "nino", Kind: entity.EventText, Payload: "lobby boy wanted"})
	assert.Contains(t, joined(msgs), "Saved Grand Budapest")

	require.Equal(t, 1, env.records.appendedCount())
	record := env.records.appended[0]
	assert.Equal(t, "Grand Budapest", record.HotelName)
	assert.Equal(t, "Zubrowka Alpine Spa", record.Address)
	assert.Equal(t, "120", record.Fields["rooms"])
	assert.Equal(t, "Gustave", record.Fields["contact"])
	assert.Equal(t, "lobby boy wanted", record.Fields["comment"])
	assert.Equal(t, "nino", record.Fields[entity.HotelFieldAgent])
	assert.Equal(t, entity.DecisionNewLead, record.Fields[entity.HotelFieldDecision])
	assert.False(t, record.CreatedAt.IsZero())

	assert.Equal(t, []string{"hotel.appended"}, env.publisher.topics)
}

func TestDuplicateSubmissionBlocked(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	env.send(t, button("u1", entity.ButtonStart))
	env.send(t, text("u1", "Seaside Inn"))
	msgs := env.send(t, text("u1", "12 Bay Street"))

	assert.Contains(t, joined(msgs), "already on the list")
	assert.True(t, hasButton(msgs, entity.ButtonReuse))
	assert.True(t, hasButton(msgs, entity.ButtonContinue))
	assert.Zero(t, env.records.appendedCount())

	s, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, entity.StateConfirmDuplicate, s.State)

	msgs = env.send(t, button("u1", entity.ButtonReuse))
	assert.Contains(t, joined(msgs), "Found")
	assert.Zero(t, env.records.appendedCount())
}

func TestDuplicateConfirmedAppends(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	env.send(t, button("u1", entity.ButtonStart))
	env.send(t, text("u1", "Seaside Inn"))
	env.send(t, text("u1", "12 Bay Street"))
	env.send(t, button("u1", entity.ButtonContinue))
	env.send(t, text("u1", "10"))
	env.send(t, text("u1", "front desk"))
	env.send(t, text("u1", "second building"))

	require.Equal(t, 1, env.records.appendedCount())
	record := env.records.appended[0]
	assert.Equal(t, entity.DecisionConfirmedDuplicate, record.Fields[entity.HotelFieldDecision])
	assert.Equal(t, "id:u1", record.Fields[entity.HotelFieldAgent])
}

func TestMalformedRowTolerated(t *testing.T) {
	hotels := seedHotels()
	for _, r := range [][2]string{
		{"River Palace", "7 River Lane"},
		{"Old Town Hostel", "3 Castle Square"},
		{"Green Garden", "9 Orchard Way"},
		{"Sunset Villa", "40 Coast Road"},
		{"Royal Plaza", "2 Freedom Square"},
		{"Blue Harbor", "18 Marina Drive"},
	} {
		hotels = append(hotels, entity.Hotel{HotelName: r[0], Address: r[1]})
	}
	require.Len(t, hotels, 9)

	rowErr := &hotelRepository.RowFormatError{Row: 10, Reason: "missing address"}
	env := newTestEnv(t, &fakeRecords{
		hotels:   hotels,
		fetchErr: fmt.Errorf("%w: %w", hotel.ErrStoreFormat, errors.Join(rowErr)),
	})

	env.send(t, button("u1", entity.ButtonSearch))
	env.send(t, text("u1", "Royal Plaza"))
	msgs := env.send(t, text("u1", "2 Freedom Square"))

	assert.Contains(t, joined(msgs), "Royal Plaza")

	logged := 0
	for _, entry := range env.hook.AllEntries() {
		if entry.Message == "Skipping malformed hotel row" {
			logged++
			assert.Equal(t, logrus.ErrorLevel, entry.Level)
			assert.Equal(t, 10, entry.Data["row"])
		}
	}
	assert.Equal(t, 1, logged)
}

func TestStoreUnavailableKeepsSession(t *testing.T) {
	records := &fakeRecords{hotels: seedHotels()}
	env := newTestEnv(t, records)

	env.send(t, button("u1", entity.ButtonSearch))
	env.send(t, text("u1", "Seaside Inn"))

	records.fetchErr = fmt.Errorf("%w: timeout", hotel.ErrStoreUnavailable)
	msgs := env.send(t, text("u1", "12 Bay St"))
	assert.Contains(t, joined(msgs), "try again shortly")

	s, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, entity.StateAwaitingSearchAddress, s.State)
	assert.Equal(t, map[string]string{entity.FieldName: "Seaside Inn"}, s.PendingFields)

	records.fetchErr = nil
	msgs = env.send(t, text("u1", "12 Bay St"))
	assert.Contains(t, joined(msgs), "Seaside Inn")
}

func answerUntilLastQuestion(t *testing.T, env *testEnv, userID, name, address string) {
	env.send(t, button(userID, entity.ButtonStart))
	env.send(t, text(userID, name))
	env.send(t, text(userID, address))
	env.send(t, text(userID, "25"))
	env.send(t, text(userID, "owner"))
}

func TestAppendConflictRetriedOnce(t *testing.T) {
	conflict := fmt.Errorf("%w: 409", hotel.ErrStoreWriteConflict)
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels(), appendErrs: []error{conflict}})

	answerUntilLastQuestion(t, env, "u1", "Lakeview Resort", "22 Lake Road")
	msgs := env.send(t, text("u1", "ok"))

	assert.Contains(t, joined(msgs), "Saved Lakeview Resort")
	assert.Equal(t, 1, env.records.appendedCount())
}

func TestAppendConflictRechecksDuplicates(t *testing.T) {
	conflict := fmt.Errorf("%w: 409", hotel.ErrStoreWriteConflict)
	records := &fakeRecords{
		hotels:     seedHotels(),
		appendErrs: []error{conflict},
		racing:     []entity.Hotel{{HotelName: "Lakeview Resort", Address: "22 Lake Road", Fields: map[string]string{}}},
	}
	env := newTestEnv(t, records)

	answerUntilLastQuestion(t, env, "u1", "Lakeview Resort", "22 Lake Road")
	msgs := env.send(t, text("u1", "ok"))

	assert.Contains(t, joined(msgs), "already on the list")
	assert.NotContains(t, joined(msgs), "Saved")
	assert.Zero(t, records.appendedCount())

	s, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, entity.StateConfirmDuplicate, s.State)
	assert.Equal(t, "ok", s.PendingFields["comment"])

	msgs = env.send(t, button("u1", entity.ButtonContinue))
	assert.Contains(t, joined(msgs), "Saved Lakeview Resort")
	require.Equal(t, 1, records.appendedCount())
	assert.Equal(t, entity.DecisionConfirmedDuplicate, records.appended[0].Fields[entity.HotelFieldDecision])
}

func TestAppendConflictTwiceAsksResubmit(t *testing.T) {
	conflict := fmt.Errorf("%w: 409", hotel.ErrStoreWriteConflict)
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels(), appendErrs: []error{conflict, conflict}})

	answerUntilLastQuestion(t, env, "u1", "Lakeview Resort", "22 Lake Road")
	msgs := env.send(t, text("u1", "ok"))

	assert.Contains(t, joined(msgs), "send your answer again")
	assert.Zero(t, env.records.appendedCount())

	s, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, entity.StateAwaitingQuestionnaire, s.State)
	assert.Equal(t, 2, s.Question)
	assert.NotContains(t, s.PendingFields, "comment")

	msgs = env.send(t, text("u1", "ok"))
	assert.Contains(t, joined(msgs), "Saved Lakeview Resort")
	assert.Equal(t, 1, env.records.appendedCount())
}

func TestAppendUnavailableKeepsLastQuestion(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{
		hotels:     seedHotels(),
		appendErrs: []error{fmt.Errorf("%w: 503", hotel.ErrStoreUnavailable)},
	})

	answerUntilLastQuestion(t, env, "u1", "Lakeview Resort", "22 Lake Road")
	msgs := env.send(t, text("u1", "ok"))

	assert.Contains(t, joined(msgs), "try again shortly")
	s, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, 2, s.Question)
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	env.send(t, button("u1", entity.ButtonSearch))
	env.send(t, button("u2", entity.ButtonStart))
	env.send(t, text("u1", "Seaside Inn"))
	env.send(t, text("u2", "Lakeview Resort"))

	s1, _ := env.session(t, "u1")
	s2, _ := env.session(t, "u2")
	assert.Equal(t, entity.StateAwaitingSearchAddress, s1.State)
	assert.Equal(t, "Seaside Inn", s1.PendingFields[entity.FieldName])
	assert.Equal(t, entity.StateAwaitingStartAddress, s2.State)
	assert.Equal(t, "Lakeview Resort", s2.PendingFields[entity.FieldName])

	env.send(t, button("u2", entity.ButtonCancel))
	s1, ok := env.session(t, "u1")
	require.True(t, ok)
	assert.Equal(t, entity.StateAwaitingSearchAddress, s1.State)
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	answerUntilLastQuestion(t, env, "u1", "Lakeview Resort", "22 Lake Road")
	answerUntilLastQuestion(t, env, "u2", "Lakeview Resort", "22 Lake Rd")

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := env.svc.HandleEvent(context.Background(), text(user, "done"))
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	assert.Equal(t, 1, env.records.appendedCount())

	states := map[entity.DialogueState]int{}
	for _, user := range []string{"u1", "u2"} {
		s, ok := env.session(t, user)
		if !ok {
			states[entity.StateIdle]++
			continue
		}
		states[s.State]++
		assert.Equal(t, "done", s.PendingFields["comment"])
	}
	assert.Equal(t, 1, states[entity.StateIdle])
	assert.Equal(t, 1, states[entity.StateConfirmDuplicate])
}

func TestConcurrentEventsSameUser(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{hotels: seedHotels()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := button("u1", entity.ButtonSearch)
			if i%2 == 1 {
				ev = button("u1", entity.ButtonCancel)
			}
			_, err := env.svc.HandleEvent(context.Background(), ev)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, ok := env.session(t, "u1")
	if ok {
		assert.NoError(t, s.Validate(NewMachine(DefaultQuestions()).QuestionKeys()))
	}
}

func TestInvalidEvent(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	_, err := env.svc.HandleEvent(context.Background(), entity.InboundEvent{Kind: entity.EventText, Payload: "hi"})
	assert.ErrorIs(t, err, hotel.ErrInvalidEvent)

	_, err = env.svc.HandleEvent(context.Background(), entity.InboundEvent{UserID: "u1", Kind: "voice"})
	assert.ErrorIs(t, err, hotel.ErrInvalidEvent)
}

func TestSessionStoreUnavailable(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := NewHotelService(log, &fakeRecords{}, brokenSessions{}, fuzzy.New(fuzzy.DefaultConfig()), nil,
		&HotelConfig{Questions: DefaultQuestions()}, nil)

	msgs, err := svc.HandleEvent(context.Background(), button("u1", entity.ButtonSearch))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "try again shortly")
}
