package hotelRepository

import (
	"HotelClaimBot/internal/entity"
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type memorySessionStore struct {
	cache  *cache.Cache
	window time.Duration
	now    Clock
}

// NewMemorySessionStore keeps sessions in process. A session whose last
// activity is older than window is treated as absent; zero disables expiry.
func NewMemorySessionStore(window time.Duration, now Clock) SessionStore {
	if now == nil {
		now = time.Now
	}
	return &memorySessionStore{
		cache:  cache.New(cache.NoExpiration, 0),
		window: window,
		now:    now,
	}
}

func (m *memorySessionStore) Get(_ context.Context, userID string) (entity.DialogueSession, bool, error) {
	v, ok := m.cache.Get(userID)
	if !ok {
		return entity.DialogueSession{}, false, nil
	}

	session := v.(entity.DialogueSession)
	if expired(session, m.window, m.now()) {
		m.cache.Delete(userID)
		return entity.DialogueSession{}, false, nil
	}

	return session.Clone(), true, nil
}

func (m *memorySessionStore) Put(_ context.Context, session entity.DialogueSession) error {
	m.cache.Set(session.UserID, session.Clone(), cache.NoExpiration)
	return nil
}

func (m *memorySessionStore) Clear(_ context.Context, userID string) error {
	m.cache.Delete(userID)
	return nil
}

func expired(session entity.DialogueSession, window time.Duration, now time.Time) bool {
	if window <= 0 || session.LastActivity.IsZero() {
		return false
	}
	return now.Sub(session.LastActivity) > window
}
