package hotelService

import (
	"HotelClaimBot/internal/api/hotel"
	hotelRepository "HotelClaimBot/internal/api/hotel/repository"
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"HotelClaimBot/pkg/events"
	"HotelClaimBot/pkg/fuzzy"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	maxEffects        = 3
	maxAppendAttempts = 2
)

func (s *hotelService) HandleEvent(ctx context.Context, ev entity.InboundEvent) ([]entity.OutboundMessage, error) {
	requestID := contextPkg.GetRequestID(ctx)

	ev.UserID = strings.TrimSpace(ev.UserID)
	if ev.UserID == "" || (ev.Kind != entity.EventText && ev.Kind != entity.EventButton) {
		return nil, hotel.ErrInvalidEvent
	}

	unlock := s.locks.Lock(ev.UserID)
	defer unlock()

	prev, err := s.loadSession(ctx, ev.UserID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    ev.UserID,
			"error":      err.Error(),
		}).Error("Failed to load session")
		return s.machine.Unavailable(entity.NewDialogueSession(ev.UserID)).Messages, nil
	}

	out := s.machine.Step(prev, ev)
	for i := 0; out.Effect != EffectNone && i < maxEffects; i++ {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    ev.UserID,
			"effect":     out.Effect.String(),
		}).Debug("Running dialogue effect")

		switch out.Effect {
		case EffectSearch:
			out = s.runSearch(ctx, prev, out.Session)
		case EffectDedupCheck:
			out = s.runDedup(ctx, prev, out.Session)
		case EffectAppend:
			out = s.runAppend(ctx, prev, out.Session, ev)
		}
	}

	if err := out.Session.Validate(s.machine.QuestionKeys()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    ev.UserID,
			"state":      out.Session.StateLabel(),
			"error":      err.Error(),
		}).Error("Dialogue produced an inconsistent session")
	}

	if err := s.saveSession(ctx, out.Session); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    ev.UserID,
			"error":      err.Error(),
		}).Error("Failed to save session")
		return s.machine.Unavailable(prev).Messages, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    ev.UserID,
		"from":       prev.StateLabel(),
		"state":      out.Session.StateLabel(),
	}).Debug("Dialogue transition")

	return out.Messages, nil
}

// loadSession returns the stored session, or a fresh idle one when the user
// has none, has finished, or holds a session that no longer fits the
// configured questionnaire.
func (s *hotelService) loadSession(ctx context.Context, userID string) (entity.DialogueSession, error) {
	tctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	session, ok, err := s.sessions.Get(tctx, userID)
	if err != nil {
		return entity.DialogueSession{}, err
	}
	if !ok || session.State == entity.StateDone {
		return entity.NewDialogueSession(userID), nil
	}

	if err := session.Validate(s.machine.QuestionKeys()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"user_id":    userID,
			"error":      err.Error(),
		}).Warn("Discarding stored session")
		return entity.NewDialogueSession(userID), nil
	}

	return session, nil
}

func (s *hotelService) saveSession(ctx context.Context, session entity.DialogueSession) error {
	tctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	if session.State == entity.StateIdle || session.State == entity.StateDone {
		return s.sessions.Clear(tctx, session.UserID)
	}

	session.LastActivity = s.now()
	return s.sessions.Put(tctx, session)
}

func (s *hotelService) runSearch(ctx context.Context, prev, session entity.DialogueSession) Outcome {
	hotels, err := s.fetchHotels(ctx)
	if err != nil {
		return s.machine.Unavailable(prev)
	}

	name, address := session.PendingFields[entity.FieldName], session.PendingFields[entity.FieldAddress]
	results := s.matcher.Matches(name, address, toEntries(hotels))
	return s.machine.ResolveSearch(session, toCandidates(hotels, results))
}

func (s *hotelService) runDedup(ctx context.Context, prev, session entity.DialogueSession) Outcome {
	hotels, err := s.fetchHotels(ctx)
	if err != nil {
		return s.machine.Unavailable(prev)
	}

	return s.machine.ResolveDedup(session, s.duplicates(session, hotels))
}

// runAppend serializes every append. Unless the user already confirmed a
// duplicate, the store is checked again under the lock before each attempt
// so that two agents submitting the same hotel cannot both write it. A write
// conflict means someone else changed the store, so the retry rechecks too.
func (s *hotelService) runAppend(ctx context.Context, prev, session entity.DialogueSession, ev entity.InboundEvent) Outcome {
	requestID := contextPkg.GetRequestID(ctx)

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	record := s.machine.BuildRecord(session, agentName(ev), s.now())

	var err error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		if !session.Confirmed {
			hotels, fetchErr := s.fetchHotels(ctx)
			if fetchErr != nil {
				return s.machine.Unavailable(prev)
			}
			if dups := s.duplicates(session, hotels); len(dups) > 0 {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"user_id":    session.UserID,
					"attempt":    attempt,
					"duplicate":  dups[0].Hotel.HotelName,
				}).Info("Duplicate appeared before append")
				return s.machine.ResolveDedup(session, dups)
			}
		}

		err = s.appendOnce(ctx, record)
		if err == nil || !errors.Is(err, hotel.ErrStoreWriteConflict) {
			break
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"attempt":    attempt,
			"error":      err.Error(),
		}).Warn("Append conflicted")
	}

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"hotel":      record.HotelName,
			"error":      err.Error(),
		}).Error("Failed to append hotel")

		if errors.Is(err, hotel.ErrStoreWriteConflict) {
			return s.machine.AppendFailed(prev)
		}
		return s.machine.Unavailable(prev)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    session.UserID,
		"hotel":      record.HotelName,
		"decision":   record.Fields[entity.HotelFieldDecision],
	}).Info("Hotel appended")

	s.publishAppended(ctx, session.UserID, record)
	return s.machine.Appended(session, record)
}

func (s *hotelService) appendOnce(ctx context.Context, record entity.Hotel) error {
	tctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.records.Append(tctx, record)
}

// fetchHotels reads the record store. Malformed rows are logged one entry
// each and dropped; only an unreachable store is returned as an error.
func (s *hotelService) fetchHotels(ctx context.Context) ([]entity.Hotel, error) {
	requestID := contextPkg.GetRequestID(ctx)

	tctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	hotels, err := s.records.FetchAll(tctx)
	if err == nil {
		return hotels, nil
	}

	if errors.Is(err, hotel.ErrStoreFormat) && !errors.Is(err, hotel.ErrMissingHeader) {
		rowErrs := rowFormatErrors(err)
		if len(rowErrs) == 0 {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Record store format error")
		}
		for _, rowErr := range rowErrs {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"row":        rowErr.Row,
				"error":      rowErr.Reason,
			}).Error("Skipping malformed hotel row")
		}
		return hotels, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"error":      err.Error(),
	}).Error("Record store unavailable")
	return nil, err
}

func (s *hotelService) duplicates(session entity.DialogueSession, hotels []entity.Hotel) []entity.Candidate {
	name, address := session.PendingFields[entity.FieldName], session.PendingFields[entity.FieldAddress]
	return toCandidates(hotels, s.matcher.Duplicates(name, address, toEntries(hotels)))
}

func (s *hotelService) publishAppended(ctx context.Context, userID string, record entity.Hotel) {
	if s.publisher == nil {
		return
	}

	evt := hotel.HotelAppendedEvent{
		UserID:    userID,
		HotelName: record.HotelName,
		Address:   record.Address,
		Fields:    record.Fields,
		CreatedAt: record.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.TopicHotelAppended, evt); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Failed to publish hotel appended event")
	}
}

func toEntries(hotels []entity.Hotel) []fuzzy.Entry {
	entries := make([]fuzzy.Entry, len(hotels))
	for i, h := range hotels {
		entries[i] = fuzzy.Entry{Name: h.HotelName, Address: h.Address}
	}
	return entries
}

func toCandidates(hotels []entity.Hotel, results []fuzzy.Result) []entity.Candidate {
	candidates := make([]entity.Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, entity.Candidate{Hotel: hotels[r.Index], Score: r.Score})
	}
	return candidates
}

func agentName(ev entity.InboundEvent) string {
	if username := strings.TrimSpace(ev.Username); username != "" {
		return username
	}
	return fmt.Sprintf("id:%s", ev.UserID)
}

func rowFormatErrors(err error) []*hotelRepository.RowFormatError {
	var out []*hotelRepository.RowFormatError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case *hotelRepository.RowFormatError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}
