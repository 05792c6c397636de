package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	CompleteBookingsJob = "complete-bookings"
	RefreshStatsJob     = "refresh-stats"
)

// BookingCompleter marks confirmed bookings whose stay has ended as completed.
type BookingCompleter interface {
	CompletePast(ctx context.Context) (int64, error)
}

// StatsRefresher recomputes the cached dashboard overview.
type StatsRefresher interface {
	Refresh(ctx context.Context) error
}

// CompleteBookings returns the job that closes finished stays.
func CompleteBookings(bookings BookingCompleter, logger *zap.Logger) Func {
	return func(ctx context.Context) error {
		n, err := bookings.CompletePast(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Booking completion sweep finished", zap.Int64("completed", n))
		return nil
	}
}

// RefreshStats returns the job that warms the dashboard cache.
func RefreshStats(stats StatsRefresher) Func {
	return func(ctx context.Context) error {
		return stats.Refresh(ctx)
	}
}

// DefaultTimeout bounds a single job run.
const DefaultTimeout = 5 * time.Minute
