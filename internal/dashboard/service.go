package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"rental-portal/admin-portal-backend/internal/bookings"
	"rental-portal/admin-portal-backend/internal/users"
	"rental-portal/admin-portal-backend/internal/verification"
)

const overviewKey = "overview"

type VerificationStats interface {
	Stats(ctx context.Context) (verification.Stats, error)
}

type UserStats interface {
	Stats(ctx context.Context) (*users.Stats, error)
}

type BookingStats interface {
	Stats(ctx context.Context) (*bookings.Stats, error)
}

// Overview is the admin dashboard headline numbers.
type Overview struct {
	Properties  verification.Stats `json:"properties"`
	Users       *users.Stats       `json:"users"`
	Bookings    *bookings.Stats    `json:"bookings"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// Service computes the overview and keeps it cached until a mutation or the
// TTL invalidates it.
type Service struct {
	verification VerificationStats
	users        UserStats
	bookings     BookingStats
	cache        *Cache
	group        singleflight.Group
	generation   atomic.Uint64
	logger       *zap.Logger
}

func NewService(v VerificationStats, u UserStats, b BookingStats, cache *Cache, logger *zap.Logger) *Service {
	return &Service{
		verification: v,
		users:        u,
		bookings:     b,
		cache:        cache,
		logger:       logger,
	}
}

// Overview returns the cached overview, computing it on a miss. Concurrent
// misses share one computation.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	if v, ok := s.cache.Get(overviewKey); ok {
		return v.(*Overview), nil
	}
	v, err, _ := s.group.Do(overviewKey, func() (interface{}, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Overview), nil
}

// Refresh recomputes the overview regardless of the cache.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.compute(ctx)
	return err
}

// Invalidate drops the cached overview. A computation already in flight
// still returns its result but does not cache it.
func (s *Service) Invalidate() {
	s.generation.Add(1)
	s.cache.Delete(overviewKey)
}

func (s *Service) compute(ctx context.Context) (*Overview, error) {
	start := time.Now()
	gen := s.generation.Load()

	props, err := s.verification.Stats(ctx)
	if err != nil {
		return nil, err
	}
	userStats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, err
	}
	bookingStats, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, err
	}

	out := &Overview{
		Properties:  props,
		Users:       userStats,
		Bookings:    bookingStats,
		GeneratedAt: time.Now().UTC(),
	}
	if s.generation.Load() == gen {
		s.cache.Set(overviewKey, out)
	}
	s.logger.Debug("Dashboard overview computed", zap.Duration("took", time.Since(start)))
	return out, nil
}
