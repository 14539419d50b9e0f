package middleware

import (
	"HotelClaimBot/pkg/response"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

type rateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     *sync.RWMutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
		mutex:     &sync.RWMutex{},
	}
}

func (r *rateLimiter) GetLimiterFrom(key string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exist := r.bucket[key]; !exist {
		r.bucket[key] = rate.NewLimiter(r.rate, r.burstSize)
	}

	return r.bucket[key]
}

// NewRateLimiter limits by the chat user id in the body when present, and by
// client IP otherwise, so one agent cannot flood the dialogue engine.
func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	key := jsoniter.Get(ctx.Body(), "user_id").ToString()
	if key == "" {
		key = ctx.IP()
	}
	limiter := m.rateLimitter.GetLimiterFrom(key)

	if !limiter.Allow() {
		m.log.Warnf("too many requests for %s", key)
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": ErrTooManyRequests.Error(),
		})
	}

	return ctx.Next()
}
