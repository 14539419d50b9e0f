package hotelRepository

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"HotelClaimBot/pkg/redis"
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const sessionKeyPrefix = "hotelbot:session:"

var sessionJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type redisSessionStore struct {
	redis  redis.IRedis
	window time.Duration
	now    Clock
	log    *logrus.Logger
}

func NewRedisSessionStore(r redis.IRedis, window time.Duration, now Clock, log *logrus.Logger) SessionStore {
	if now == nil {
		now = time.Now
	}
	return &redisSessionStore{
		redis:  r,
		window: window,
		now:    now,
		log:    log,
	}
}

func (s *redisSessionStore) Get(ctx context.Context, userID string) (entity.DialogueSession, bool, error) {
	raw, err := s.redis.Get(ctx, sessionKeyPrefix+userID)
	if errors.Is(err, redis.ErrNotFound) {
		return entity.DialogueSession{}, false, nil
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"user_id":    userID,
			"error":      err.Error(),
		}).Error("Failed to load session")
		return entity.DialogueSession{}, false, fmt.Errorf("%w: %w", hotel.ErrSessionUnavailable, err)
	}

	var session entity.DialogueSession
	if err := sessionJSON.Unmarshal(raw, &session); err != nil {
		// A corrupt value is dropped and the user starts over.
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"user_id":    userID,
			"error":      err.Error(),
		}).Warn("Discarding undecodable session")
		_ = s.redis.Delete(ctx, sessionKeyPrefix+userID)
		return entity.DialogueSession{}, false, nil
	}
	if session.PendingFields == nil {
		session.PendingFields = map[string]string{}
	}

	if expired(session, s.window, s.now()) {
		_ = s.redis.Delete(ctx, sessionKeyPrefix+userID)
		return entity.DialogueSession{}, false, nil
	}

	return session, true, nil
}

func (s *redisSessionStore) Put(ctx context.Context, session entity.DialogueSession) error {
	raw, err := sessionJSON.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+session.UserID, raw, s.window); err != nil {
		return fmt.Errorf("%w: %w", hotel.ErrSessionUnavailable, err)
	}
	return nil
}

func (s *redisSessionStore) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Delete(ctx, sessionKeyPrefix+userID); err != nil {
		return fmt.Errorf("%w: %w", hotel.ErrSessionUnavailable, err)
	}
	return nil
}
