package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// limiterIdleTTL tiempo sin peticiones tras el cual se descarta el limiter de una IP.
const limiterIdleTTL = 30 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore un token bucket por IP.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	every     rate.Limit
	burst     int
	lastSweep time.Time
}

func newRateLimiterStore(requests int, window time.Duration) *rateLimiterStore {
	if requests <= 0 {
		requests = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &rateLimiterStore{
		limiters:  make(map[string]*ipLimiter),
		every:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		lastSweep: time.Now(),
	}
}

func (s *rateLimiterStore) allow(ip string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for key, l := range s.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(s.limiters, key)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[ip] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// RateLimitMiddleware limita las peticiones por IP: requests por window, con ráfaga de requests.
func RateLimitMiddleware(requests int, window time.Duration, log *logger.Logger) fiber.Handler {
	store := newRateLimiterStore(requests, window)
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if !store.allow(ip, time.Now()) {
			log.Warn().Str("ip", ip).Str("path", c.Path()).Msg("Rate limit excedido")
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "Demasiadas peticiones, intenta de nuevo más tarde.",
			})
		}
		return c.Next()
	}
}
