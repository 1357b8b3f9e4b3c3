// Package scheduler drives recurring synchronization runs from a cron
// schedule. Firings that land while a run is still active are dropped,
// never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/candleworks/catalogsync/internal/cron"
	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/sync"
	"github.com/candleworks/catalogsync/internal/telemetry"
)

// ErrInvalidSchedule indicates a schedule change was rejected before it
// touched the armed timer.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Runner triggers a synchronization run.
type Runner interface {
	Run(ctx context.Context, trigger sync.Trigger) error
}

// Driver arms a timer from a cron schedule and triggers the runner on
// each firing.
type Driver struct {
	runner  Runner
	metrics *telemetry.Metrics

	mu       gosync.Mutex
	sched    *cron.Schedule
	loc      *time.Location
	paused   bool
	nextFire time.Time

	wake     chan struct{}
	done     chan struct{}
	loopOnce gosync.Once
	stopOnce gosync.Once
}

// NewDriver returns a driver that is not yet armed. Call Start to load a
// schedule and begin firing.
func NewDriver(runner Runner, metrics *telemetry.Metrics) *Driver {
	return &Driver{
		runner:  runner,
		metrics: metrics,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start validates the expression and timezone, arms the schedule, and
// begins the firing loop. Validation failures leave the driver unarmed.
func (d *Driver) Start(expression, timezone string) error {
	sched, loc, err := compile(expression, timezone)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sched = sched
	d.loc = loc
	d.paused = false
	d.nextFire = sched.Next(time.Now().In(loc))
	d.mu.Unlock()

	logger.Infof("Schedule armed: %q (%s), next fire at %s",
		expression, loc, d.NextFireTime().Format(time.RFC3339))

	d.loopOnce.Do(func() { go d.loop() })
	d.signal()
	return nil
}

// Reschedule replaces the armed schedule. The swap is all or nothing: if
// the new expression or timezone is invalid the current schedule keeps
// firing untouched. An empty timezone keeps the armed location rather
// than resetting it to UTC.
func (d *Driver) Reschedule(expression, timezone string) error {
	if timezone == "" {
		d.mu.Lock()
		if d.loc != nil {
			timezone = d.loc.String()
		}
		d.mu.Unlock()
	}

	sched, loc, err := compile(expression, timezone)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sched = sched
	d.loc = loc
	if !d.paused {
		d.nextFire = sched.Next(time.Now().In(loc))
	}
	d.mu.Unlock()

	logger.Infof("Schedule replaced: %q (%s)", expression, loc)
	d.signal()
	return nil
}

// Pause suspends firing without discarding the schedule. Calling it on
// an already paused driver is a no-op.
func (d *Driver) Pause() {
	d.mu.Lock()
	changed := !d.paused
	d.paused = true
	d.nextFire = time.Time{}
	d.mu.Unlock()

	if changed {
		logger.Infof("Schedule paused")
		d.signal()
	}
}

// Resume re-arms a paused driver. Calling it on a running driver is a
// no-op.
func (d *Driver) Resume() {
	d.mu.Lock()
	changed := d.paused && d.sched != nil
	if changed {
		d.paused = false
		d.nextFire = d.sched.Next(time.Now().In(d.loc))
	}
	d.mu.Unlock()

	if changed {
		logger.Infof("Schedule resumed, next fire at %s",
			d.NextFireTime().Format(time.RFC3339))
		d.signal()
	}
}

// NextFire reports the next scheduled firing time. The second return is
// false when the driver is paused or was never armed.
func (d *Driver) NextFire() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused || d.nextFire.IsZero() {
		return time.Time{}, false
	}
	return d.nextFire, true
}

// NextFireTime is NextFire without the ok flag, for logging.
func (d *Driver) NextFireTime() time.Time {
	t, _ := d.NextFire()
	return t
}

// Expression returns the armed cron expression, or "" when unarmed.
func (d *Driver) Expression() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return ""
	}
	return d.sched.Expression()
}

// Paused reports whether firing is currently suspended.
func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Close shuts the firing loop down. Safe to call more than once.
func (d *Driver) Close() {
	d.stopOnce.Do(func() { close(d.done) })
}

func (d *Driver) loop() {
	for {
		d.mu.Lock()
		armed := d.sched != nil && !d.paused
		var next time.Time
		if armed {
			next = d.sched.Next(time.Now().In(d.loc))
			d.nextFire = next
		}
		d.mu.Unlock()

		if !armed {
			select {
			case <-d.wake:
				continue
			case <-d.done:
				return
			}
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			d.fire()
		case <-d.wake:
			timer.Stop()
		case <-d.done:
			timer.Stop()
			return
		}
	}
}

// fire triggers one scheduled run. An already active run drops the
// firing rather than queueing it.
func (d *Driver) fire() {
	err := d.runner.Run(context.Background(), sync.TriggerScheduled)
	if err == nil {
		return
	}

	var already *sync.AlreadyRunningError
	if errors.As(err, &already) {
		logger.Warnf("Dropping scheduled firing, sync already active in state %s", already.State)
		d.metrics.FiringsDropped.Inc()
		return
	}
	logger.Errorf("Scheduled sync failed: %v", err)
}

func (d *Driver) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func compile(expression, timezone string) (*cron.Schedule, *time.Location, error) {
	sched, err := cron.Parse(expression)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, timezone)
	}
	return sched, loc, nil
}
