// Package notify delivers backend notifications to chats.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/internal/backend"
)

// ErrCycleInProgress is returned by RunCycle while another cycle runs.
var ErrCycleInProgress = errors.New("notify: cycle in progress")

// Source is the backend side of the queue.
type Source interface {
	PendingNotifications(ctx context.Context, limit int) ([]backend.Notification, error)
	ReportStatus(ctx context.Context, r backend.StatusReport) error
}

// Sender makes one delivery attempt.
type Sender interface {
	Deliver(ctx context.Context, chatID, text string) error
}

// Attempt is one processed notification.
type Attempt struct {
	NotificationID string    `db:"notification_id"`
	ChatID         string    `db:"chat_id"`
	Status         string    `db:"status"`
	Class          string    `db:"class"`
	Detail         string    `db:"detail"`
	Reported       bool      `db:"reported"`
	AttemptedAt    time.Time `db:"attempted_at"`
}

// Journal keeps a local record of attempts.
type Journal interface {
	Record(ctx context.Context, a Attempt) error
}

// Locker guards cycles across processes. Acquire returns ok=false when another
// holder owns the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	Fetched      int
	Sent         int
	Failed       int
	Invalid      int
	Permanent    int
	ReportErrors int
	// Skipped is set when another process held the cycle lock.
	Skipped bool
}

// Options configures NewPoller.
type Options struct {
	Source    Source
	Sender    Sender
	Journal   Journal
	Locker    Locker
	Interval  time.Duration
	Delay     time.Duration
	BatchSize int
	// Observe receives the outcome of every cycle.
	Observe func(stats CycleStats, err error, took time.Duration)
	// OnAttempt receives every processed notification.
	OnAttempt func(a Attempt)
}

// Poller drains the pending notification queue on a fixed interval.
type Poller struct {
	opts Options
	mu   sync.Mutex
	now  func() time.Time
}

// NewPoller builds a Poller with defaults for unset options.
func NewPoller(opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Poller{opts: opts, now: time.Now}
}

// Run waits for the initial delay and then runs one cycle per interval until
// ctx is done. Cycles never overlap: the next tick is only taken after the
// previous cycle returned.
func (p *Poller) Run(ctx context.Context) error {
	logger.Info(ctx, logger.CompNotify, "notify.start",
		slog.Duration("interval", p.opts.Interval),
		slog.Duration("delay", p.opts.Delay),
		slog.Int("batch", p.opts.BatchSize),
	)
	wait := time.NewTimer(p.opts.Delay)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-wait.C:
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		if _, err := p.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) && ctx.Err() == nil {
			logger.Warn(ctx, logger.CompNotify, "notify.cycle.fail", slog.String("err", err.Error()))
		}
		select {
		case <-ctx.Done():
			logger.Info(ctx, logger.CompNotify, "notify.stop")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle fetches one batch and processes it. Only a failed fetch fails the
// cycle; every notification is handled in isolation.
func (p *Poller) RunCycle(ctx context.Context) (stats CycleStats, err error) {
	if !p.mu.TryLock() {
		return CycleStats{}, ErrCycleInProgress
	}
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		if p.opts.Observe != nil {
			p.opts.Observe(stats, err, time.Since(start))
		}
		lvl := slog.LevelInfo
		if stats.Fetched == 0 && err == nil {
			lvl = slog.LevelDebug
		}
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.Int("fetched", stats.Fetched),
			slog.Int("sent", stats.Sent),
			slog.Int("failed", stats.Failed),
			slog.Int("invalid", stats.Invalid),
			slog.Int("permanent", stats.Permanent),
			slog.Int("report_errors", stats.ReportErrors),
			slog.Bool("skipped", stats.Skipped),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
		logger.Event(ctx, logger.CompNotify, lvl, "notify.cycle", attrs...)
	}()

	if p.opts.Locker != nil {
		release, ok, lerr := p.opts.Locker.Acquire(ctx)
		if lerr != nil {
			return stats, fmt.Errorf("notify: acquire lock: %w", lerr)
		}
		if !ok {
			stats.Skipped = true
			return stats, nil
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				logger.Warn(ctx, logger.CompNotify, "notify.lock.release", slog.String("err", rerr.Error()))
			}
		}()
	}

	batch, err := p.opts.Source.PendingNotifications(ctx, p.opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("notify: fetch: %w", err)
	}
	stats.Fetched = len(batch)
	for _, n := range batch {
		p.process(ctx, n, &stats)
	}
	return stats, nil
}

// process delivers n once and reports the outcome. A panic stays confined to n
// and still yields one failed report when none was sent yet.
func (p *Poller) process(ctx context.Context, n backend.Notification, stats *CycleStats) {
	a := Attempt{NotificationID: n.ID, ChatID: n.ChatID, AttemptedAt: p.now()}
	reported := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, logger.CompNotify, "notify.panic",
				slog.String("notification_id", n.ID),
				slog.String("err", fmt.Sprint(r)),
			)
			if !reported {
				stats.Failed++
				p.reportInternal(ctx, n.ID, stats)
			}
		}
	}()

	switch {
	case n.ChatID == "" || n.Message == "":
		a.Status, a.Detail = backend.StatusFailed, DetailInvalid
		stats.Invalid++
		stats.Failed++
	default:
		if err := p.opts.Sender.Deliver(ctx, n.ChatID, n.Message); err != nil {
			cl := Classify(err)
			a.Status, a.Class, a.Detail = backend.StatusFailed, string(cl.Class), cl.Detail
			if cl.Class == Permanent {
				stats.Permanent++
			}
			stats.Failed++
		} else {
			a.Status = backend.StatusSent
			stats.Sent++
		}
	}

	reported = true
	rerr := p.opts.Source.ReportStatus(ctx, backend.StatusReport{
		NotificationID: n.ID,
		Status:         a.Status,
		Error:          a.Detail,
	})
	a.Reported = rerr == nil
	if rerr != nil {
		stats.ReportErrors++
	}

	status := "ok"
	if a.Status != backend.StatusSent {
		status = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("notification_id", a.NotificationID),
		slog.String("delivery", a.Status),
		slog.String("class", a.Class),
		slog.Bool("reported", a.Reported),
	}
	if a.Detail != "" {
		attrs = append(attrs, slog.String("cause", logger.SanitizeLimit(a.Detail, 256)))
	}
	if rerr != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(rerr.Error(), 256)))
	}
	lvl := slog.LevelDebug
	if a.Status != backend.StatusSent || rerr != nil {
		lvl = slog.LevelWarn
	}
	logger.Event(ctx, logger.CompNotify, lvl, "notify.delivery", attrs...)

	if p.opts.Journal != nil {
		if jerr := p.opts.Journal.Record(ctx, a); jerr != nil {
			logger.Warn(ctx, logger.CompNotify, "notify.journal", slog.String("err", jerr.Error()))
		}
	}
	if p.opts.OnAttempt != nil {
		p.opts.OnAttempt(a)
	}
}

// reportInternal sends the failed status for a notification whose processing
// panicked before its report.
func (p *Poller) reportInternal(ctx context.Context, id string, stats *CycleStats) {
	defer func() {
		if r := recover(); r != nil {
			stats.ReportErrors++
			logger.Error(ctx, logger.CompNotify, "notify.panic.report",
				slog.String("notification_id", id),
				slog.String("err", fmt.Sprint(r)),
			)
		}
	}()
	err := p.opts.Source.ReportStatus(ctx, backend.StatusReport{
		NotificationID: id,
		Status:         backend.StatusFailed,
		Error:          DetailInternal,
	})
	if err != nil {
		stats.ReportErrors++
		logger.Warn(ctx, logger.CompNotify, "notify.report", slog.String("err", err.Error()))
	}
}
