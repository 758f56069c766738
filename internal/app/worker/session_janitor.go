package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"devbook/internal/domain/repository"
	"devbook/internal/platform/logger"
	"devbook/internal/platform/metrics"
)

const janitorLockKey = "devbook:janitor:lock"

// releaseLock deletes the lock only if it still holds our value.
var releaseLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// SessionJanitor periodically removes expired sessions and stale reset tokens.
// When several instances share Redis only one of them sweeps per interval.
type SessionJanitor struct {
	rdb      *redis.Client
	sessions repository.SessionRepository
	users    repository.UserRepository
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewSessionJanitor(rdb *redis.Client, sessions repository.SessionRepository, users repository.UserRepository, interval time.Duration) *SessionJanitor {
	return &SessionJanitor{
		rdb:      rdb,
		sessions: sessions,
		users:    users,
		interval: interval,
		now:      time.Now,
		log:      logger.WithComponent("janitor"),
	}
}

func (j *SessionJanitor) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Msg("session janitor started")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("session janitor stopping")
			return
		case <-ticker.C:
			j.sweepWithLock(ctx)
		}
	}
}

func (j *SessionJanitor) sweepWithLock(ctx context.Context) {
	if j.rdb == nil {
		j.Sweep(ctx)
		return
	}

	lockValue := uuid.NewString()
	ok, err := j.rdb.SetNX(ctx, janitorLockKey, lockValue, j.interval/2).Result()
	if err != nil {
		j.log.Error().Err(err).Msg("failed to attempt janitor lock acquisition")
		return
	}
	if !ok {
		j.log.Debug().Msg("janitor lock held by another instance, skipping sweep")
		return
	}
	defer func() {
		if err := releaseLock.Run(ctx, j.rdb, []string{janitorLockKey}, lockValue).Err(); err != nil {
			j.log.Warn().Err(err).Msg("failed to release janitor lock")
		}
	}()

	j.Sweep(ctx)
}

// Sweep performs one cleanup pass.
func (j *SessionJanitor) Sweep(ctx context.Context) {
	now := j.now()

	purged, err := j.sessions.DeleteExpired(ctx, now)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to delete expired sessions")
	} else if purged > 0 {
		metrics.SessionsPurgedTotal.Add(float64(purged))
		j.log.Info().Int64("sessions", purged).Msg("expired sessions removed")
	}

	cleared, err := j.users.PurgeExpiredResetTokens(ctx, now)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to clear expired reset tokens")
	} else if cleared > 0 {
		j.log.Info().Int64("users", cleared).Msg("expired reset tokens cleared")
	}
}
