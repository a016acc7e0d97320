package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// ExpiredRowStore is the part of the repository the janitor needs.
type ExpiredRowStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically removes sessions and reset tokens past their expiry.
// Lookups already reject expired rows; this only keeps the tables small.
type Janitor struct {
	cron    *cron.Cron
	store   ExpiredRowStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewJanitor(store ExpiredRowStore, m *metrics.Metrics, log zerolog.Logger) *Janitor {
	return &Janitor{
		cron:    cron.New(),
		store:   store,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Start schedules the sweep. schedule accepts cron specs and descriptors such as "@every 1h".
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts scheduling and returns a context that is done once a running sweep finishes.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := j.Sweep(ctx); err != nil {
		j.log.Error().Err(err).Msg("janitor sweep failed")
	}
}

// Sweep deletes every expired session and reset token once.
func (j *Janitor) Sweep(ctx context.Context) error {
	now := j.now()

	sessions, errSessions := j.store.DeleteExpiredSessions(ctx, now)
	if errSessions == nil {
		j.metrics.Swept("sessions", sessions)
	}

	tokens, errTokens := j.store.DeleteExpiredResetTokens(ctx, now)
	if errTokens == nil {
		j.metrics.Swept("password_reset_tokens", tokens)
	}

	if err := errors.Join(errSessions, errTokens); err != nil {
		return err
	}

	j.log.Info().
		Int64("sessions", sessions).
		Int64("reset_tokens", tokens).
		Msg("expired rows swept")
	return nil
}
