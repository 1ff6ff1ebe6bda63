package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/emrecanisildak/diet/internal/audit"
	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/metrics"
	"github.com/emrecanisildak/diet/internal/repository"
	pkglog "github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/pubsub"
)

var (
	ErrAlreadyRunning  = errors.New("scheduler: already running")
	ErrNotRunning      = errors.New("scheduler: not running")
	ErrInvalidInterval = errors.New("scheduler: interval must be in (0, 1m]")
	// ErrTickInProgress is returned by Tick when another tick holds the engine.
	ErrTickInProgress = errors.New("scheduler: tick already in progress")
)

// Fanout pushes one alert to many users. Failures are counted, not returned.
type Fanout interface {
	PushToRecipients(ctx context.Context, users []*domain.User, title, body string) (attempted, failed int)
}

// TickResult summarizes one evaluation pass.
type TickResult struct {
	Evaluated int
	Fired     []string
	Malformed int
	// Skipped is set when the lease was held elsewhere and nothing ran.
	Skipped bool
}

// Engine fires scheduled notifications on a fixed interval. Each due
// definition is re-read under lock, re-checked, and recorded as fired in
// the same transaction that stores the recipients' inbox rows. Pushes go
// out after commit.
type Engine struct {
	store   repository.Store
	fanout  Fanout
	events  pubsub.Publisher
	lease   Lease
	loc     *time.Location
	now     func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// held for the duration of a tick
	busy *semaphore.Weighted

	mu         sync.Mutex
	quit       chan struct{}
	doneCh     chan struct{}
	cancelTick context.CancelFunc
}

type Option func(*Engine)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone whose calendar days bound daily firing.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLease coordinates ticks with other instances.
func WithLease(l Lease) Option {
	return func(e *Engine) {
		if l != nil {
			e.lease = l
		}
	}
}

// WithEvents publishes notification.fired after each fire.
func WithEvents(p pubsub.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a stopped engine.
func NewEngine(store repository.Store, fanout Fanout, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		fanout: fanout,
		events: pubsub.NopPublisher{},
		lease:  LocalLease{},
		loc:    time.UTC,
		now:    time.Now,
		logger: pkglog.L(),
		busy:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start evaluates definitions immediately and then every interval until Stop.
func (e *Engine) Start(interval time.Duration) error {
	if interval <= 0 || interval > time.Minute {
		return ErrInvalidInterval
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quit != nil {
		return ErrAlreadyRunning
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	e.quit = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.cancelTick = cancel

	go e.run(tickCtx, interval, e.quit, e.doneCh)

	e.logger.Info().
		Dur("interval", interval).
		Str("timezone", e.loc.String()).
		Msg("scheduler started")
	return nil
}

// Stop stops accepting ticks and waits for an in-flight tick to finish.
// If ctx expires first the tick is cancelled, its transaction rolls back,
// and ctx's error is returned once the loop has exited.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.quit == nil {
		e.mu.Unlock()
		return ErrNotRunning
	}
	quit, done, cancel := e.quit, e.doneCh, e.cancelTick
	e.quit, e.doneCh, e.cancelTick = nil, nil, nil
	e.mu.Unlock()

	close(quit)

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		cancel()
		<-done
	}
	cancel()

	e.logger.Info().Msg("scheduler stopped")
	return err
}

func (e *Engine) run(ctx context.Context, interval time.Duration, quit, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.runTick(ctx)
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			// a tick that ran past the interval leaves at most one pending
			// ticker event, so ticks never overlap
			select {
			case <-quit:
				return
			default:
			}
			e.runTick(ctx)
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	start := time.Now()
	res, err := e.Tick(ctx)
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrTickInProgress):
		outcome = metrics.OutcomeBusy
		e.logger.Warn().Msg("scheduler: previous tick still running, skipping")
	case err != nil:
		outcome = metrics.OutcomeError
		e.logger.Error().Err(err).Msg("scheduler: tick failed, will retry next tick")
	case res.Skipped:
		outcome = metrics.OutcomeSkipped
		e.logger.Debug().Msg("scheduler: tick lease held elsewhere, skipping")
	case len(res.Fired) > 0:
		e.logger.Info().
			Int("evaluated", res.Evaluated).
			Strs("fired", res.Fired).
			Msg("scheduler: tick complete")
	}
	e.metrics.TickCompleted(outcome, time.Since(start))
}

// Tick evaluates every active definition once. It returns
// ErrTickInProgress without doing anything if another tick is running.
// A persistence error ends the tick; definitions fired before it stay fired.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	if !e.busy.TryAcquire(1) {
		return res, ErrTickInProgress
	}
	defer e.busy.Release(1)

	release, ok, err := e.lease.Acquire(ctx)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Skipped = true
		return res, nil
	}
	defer release()

	now := e.now()
	defs, err := e.store.Scheduled().ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load scheduled notifications: %w", err)
	}

	var clients []*domain.User
	loaded := false

	for _, def := range defs {
		res.Evaluated++
		l := e.logger.With().
			Str(pkglog.FieldDefinitionID, def.ID).
			Str(pkglog.FieldScheduleKind, string(def.Kind)).
			Logger()

		due, err := IsDue(def, now, e.loc)
		if err != nil {
			res.Malformed++
			l.Warn().Err(err).Str("scheduled_time", def.ScheduledTime).Msg("scheduler: skipping malformed definition")
			continue
		}
		if !due {
			continue
		}

		if !loaded {
			clients, err = e.store.Users().ListByRole(ctx, domain.RoleClient)
			if err != nil {
				return res, fmt.Errorf("failed to load recipients: %w", err)
			}
			loaded = true
		}

		fired, err := e.fire(ctx, def.ID, clients, now)
		if err != nil {
			return res, fmt.Errorf("failed to fire %s: %w", def.ID, err)
		}
		if !fired {
			continue
		}
		res.Fired = append(res.Fired, def.ID)
		e.metrics.Fired(string(def.Kind))

		attempted, failed := e.fanout.PushToRecipients(ctx, clients, def.Title, def.Body)
		e.publish(ctx, def, len(clients), failed)

		l.Info().
			Int("recipients", len(clients)).
			Int("pushed", attempted).
			Int("push_failed", failed).
			Msg("scheduler: notification fired")
		audit.LogTarget(pkglog.WithLogger(ctx, l), audit.ActionScheduleFire, "scheduler", def.ID,
			fmt.Sprintf("scheduled notification fired to %d recipients", len(clients)))
	}

	return res, nil
}

// fire re-reads the definition under lock and, if it is still due, stores
// one inbox row per recipient and records the fire.
func (e *Engine) fire(ctx context.Context, id string, recipients []*domain.User, now time.Time) (bool, error) {
	fired := false
	err := e.store.WithinTx(ctx, func(tx repository.Store) error {
		cur, err := tx.Scheduled().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		due, err := IsDue(cur, now, e.loc)
		if err != nil || !due {
			return nil
		}

		rows := make([]*domain.Notification, 0, len(recipients))
		for _, u := range recipients {
			rows = append(rows, &domain.Notification{
				UserID:    u.ID,
				Title:     cur.Title,
				Body:      cur.Body,
				CreatedAt: now.UTC(),
			})
		}
		if err := tx.Notifications().CreateBatch(ctx, rows); err != nil {
			return err
		}

		update := repository.ScheduledUpdate{LastFiredAt: &now}
		if cur.Kind == domain.ScheduleOnce {
			inactive := false
			update.Active = &inactive
		}
		if err := tx.Scheduled().Update(ctx, id, update); err != nil {
			return err
		}
		fired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fired, nil
}

func (e *Engine) publish(ctx context.Context, def *domain.ScheduledNotification, recipients, failed int) {
	event, err := pubsub.NewEvent(pubsub.EventNotificationFired, def.ID, pubsub.NotificationFiredPayload{
		DefinitionID: def.ID,
		ScheduleType: string(def.Kind),
		Recipients:   recipients,
		Failed:       failed,
	})
	if err == nil {
		err = e.events.Publish(ctx, pubsub.ChannelNotifications, event)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str(pkglog.FieldDefinitionID, def.ID).Msg("scheduler: failed to publish fired event")
	}
}
