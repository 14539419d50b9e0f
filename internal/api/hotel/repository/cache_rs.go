package hotelRepository

import (
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const allHotelsKey = "hotels:all"

type cachedStore struct {
	next  RecordStore
	cache *cache.Cache
	log   *logrus.Logger

	// generation changes on every Append; a fetch that overlapped one is
	// returned but not cached.
	mu         sync.Mutex
	generation uint64
}

// NewCachedStore memoizes successful FetchAll results for ttl. Partial
// results that came with a format error are never cached so the bad rows
// keep getting reported. Append always invalidates. A non-positive ttl
// returns next unchanged.
func NewCachedStore(next RecordStore, ttl time.Duration, log *logrus.Logger) RecordStore {
	if ttl <= 0 {
		return next
	}
	return &cachedStore{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		log:   log,
	}
}

func (c *cachedStore) FetchAll(ctx context.Context) ([]entity.Hotel, error) {
	if v, ok := c.cache.Get(allHotelsKey); ok {
		c.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
		}).Debug("Serving hotels from cache")
		return append([]entity.Hotel(nil), v.([]entity.Hotel)...), nil
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	hotels, err := c.next.FetchAll(ctx)
	if err != nil {
		return hotels, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation {
		c.cache.SetDefault(allHotelsKey, append([]entity.Hotel(nil), hotels...))
	}
	return hotels, nil
}

func (c *cachedStore) Append(ctx context.Context, record entity.Hotel) error {
	defer c.invalidate()
	return c.next.Append(ctx, record)
}

func (c *cachedStore) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Delete(allHotelsKey)
}
