package sync

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	sysync "sync"
	"time"

	"github.com/candleworks/catalogsync/internal/config"
	"github.com/candleworks/catalogsync/internal/history"
	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/parser"
	"github.com/candleworks/catalogsync/internal/remote"
	"github.com/candleworks/catalogsync/internal/telemetry"
)

// Publisher is the downstream consumer of a completed run's records.
type Publisher interface {
	Publish(ctx context.Context, records []parser.Record) error
}

// Orchestrator owns the sync state machine. All mutation of the status and
// the history store happens on the single active run; concurrent triggers
// are rejected by the single-flight guard, so runs never interleave.
type Orchestrator struct {
	cfg       *config.Config
	client    remote.Client
	history   *history.Store
	publisher Publisher
	metrics   *telemetry.Metrics

	mu          sysync.RWMutex
	status      Status
	lastRecords []parser.Record
}

// NewOrchestrator creates an orchestrator in the Idle state. The publisher
// may be nil, in which case records are staged but not pushed downstream.
func NewOrchestrator(
	cfg *config.Config,
	client remote.Client,
	hist *history.Store,
	publisher Publisher,
	metrics *telemetry.Metrics,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		client:    client,
		history:   hist,
		publisher: publisher,
		metrics:   metrics,
		status: Status{
			State:   StateIdle,
			Message: "Waiting for first sync",
		},
	}
}

// Status returns a snapshot of the current run status. It never blocks on
// an in-flight run.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// LatestRecords returns a copy of the records produced by the most recent
// successful run.
func (o *Orchestrator) LatestRecords() []parser.Record {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]parser.Record, len(o.lastRecords))
	copy(out, o.lastRecords)
	return out
}

// History returns the run history store for status and log surfaces.
func (o *Orchestrator) History() *history.Store {
	return o.history
}

// Run executes one complete sync: connect, download, parse, finalize. It
// blocks until the run has reached its terminal state and the grace delay
// has elapsed. When another run is active it returns *AlreadyRunningError
// immediately with no side effects.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) error {
	startedAt, err := o.begin(trigger)
	if err != nil {
		return err
	}
	return o.execute(ctx, trigger, startedAt)
}

// RunAsync acquires the single-flight guard synchronously, so the caller
// learns about an active run immediately, then completes the run on a
// background goroutine. Used by the HTTP trigger surface.
//
// The run is detached from the caller's cancellation: an HTTP request
// context dies as soon as the handler returns, long before the SFTP
// transfer finishes, so the background run keeps the caller's values but
// not its deadline.
func (o *Orchestrator) RunAsync(ctx context.Context, trigger Trigger) error {
	startedAt, err := o.begin(trigger)
	if err != nil {
		return err
	}
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if err := o.execute(runCtx, trigger, startedAt); err != nil {
			logger.Errorf("Background sync run failed: %v", err)
		}
	}()
	return nil
}

// begin is the single-flight guard: it admits the run only from Idle and
// performs the Idle -> Connecting transition atomically.
func (o *Orchestrator) begin(trigger Trigger) (time.Time, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status.State != StateIdle {
		return time.Time{}, &AlreadyRunningError{State: o.status.State}
	}

	now := time.Now()
	o.status.State = StateConnecting
	o.status.Message = "Connecting to remote host"
	o.status.CurrentRunStartedAt = &now

	logger.Infof("Sync run started (trigger=%s)", trigger)
	o.metrics.RunsStarted.WithLabelValues(string(trigger)).Inc()
	return now, nil
}

// runResult accumulates what a run produced for the history record.
type runResult struct {
	sourceFile   string
	payloadBytes int64
	stats        parser.Stats
}

// execute drives the phases of an admitted run to Completed or Error and
// then back to Idle. Failures never escape: every error path ends in a
// failed history record and the error grace delay.
func (o *Orchestrator) execute(ctx context.Context, trigger Trigger, startedAt time.Time) error {
	var res runResult

	err := o.runPhases(ctx, &res)
	duration := time.Since(startedAt)

	rec := history.RunRecord{
		Succeeded:        err == nil,
		Trigger:          string(trigger),
		StartedAt:        startedAt,
		DurationMs:       duration.Milliseconds(),
		RecordsProcessed: res.stats.Accepted,
		RejectedLines:    res.stats.Rejected,
		PayloadSizeBytes: res.payloadBytes,
		SourceFile:       res.sourceFile,
	}

	o.metrics.RunDuration.Observe(duration.Seconds())

	if err != nil {
		rec.ErrorDetail = err.Error()
		o.history.Append(rec)
		o.metrics.RunsCompleted.WithLabelValues("failure").Inc()

		o.transition(StateError, err.Error())
		logger.Errorf("Sync run failed after %s: %v", duration.Round(time.Millisecond), err)

		// Longer pause before accepting new triggers so scheduled
		// firings cannot hammer a broken source.
		o.sleep(ctx, o.cfg.Grace.GetError())
		o.finishRun(false, err.Error())
		return err
	}

	o.history.Append(rec)
	o.metrics.RunsCompleted.WithLabelValues("success").Inc()
	o.metrics.RecordsProcessed.Add(float64(res.stats.Accepted))
	o.metrics.LinesRejected.Add(float64(res.stats.Rejected))
	o.metrics.PayloadBytes.Add(float64(res.payloadBytes))

	o.transition(StateCompleted, fmt.Sprintf(
		"Sync completed: %d records from %s (%d lines rejected)",
		res.stats.Accepted, res.sourceFile, res.stats.Rejected))
	logger.Infof("Sync run completed in %s: %d records, %d bytes, %d rejected lines",
		duration.Round(time.Millisecond), res.stats.Accepted, res.payloadBytes, res.stats.Rejected)

	// Short pause so observers can read the Completed state.
	o.sleep(ctx, o.cfg.Grace.GetCompleted())
	o.finishRun(true, "Last sync completed successfully")
	return nil
}

// runPhases performs the Connecting/Downloading/Parsing/Finalizing work.
func (o *Orchestrator) runPhases(ctx context.Context, res *runResult) error {
	session, err := o.client.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer session.Close()

	o.transition(StateDownloading, "Selecting and downloading latest export")

	entries, err := session.List(o.cfg.Remote.Dir)
	if err != nil {
		return fmt.Errorf("listing %s failed: %w", o.cfg.Remote.Dir, err)
	}

	selected, err := selectLatest(entries, o.cfg.Remote.FilePattern)
	if err != nil {
		return err
	}
	res.sourceFile = selected.Name
	logger.Infof("Selected remote file %s (%d bytes, modified %s)",
		selected.Name, selected.SizeBytes, selected.ModifiedAt.Format(time.RFC3339))

	stagingDir := o.cfg.Staging.GetDir()
	if err := ensureStagingDir(stagingDir); err != nil {
		return err
	}

	// Staged payloads are named by their source file, so re-fetching the
	// same export overwrites rather than accumulates.
	localPath := filepath.Join(stagingDir, selected.Name)
	n, err := session.Fetch(path.Join(o.cfg.Remote.Dir, selected.Name), localPath)
	if err != nil {
		return fmt.Errorf("fetch of %s failed: %w", selected.Name, err)
	}
	res.payloadBytes = n

	o.transition(StateParsing, fmt.Sprintf("Parsing %s", selected.Name))

	raw, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read staged payload: %w", err)
	}

	records, stats := parser.Parse(string(raw), parser.Options{
		CleanNames: o.cfg.Parser.GetCleanNames(),
		Validate:   o.cfg.Parser.GetValidate(),
	})
	res.stats = stats

	o.transition(StateFinalizing, "Publishing records and cleaning staging area")

	o.mu.Lock()
	o.lastRecords = records
	o.mu.Unlock()

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, records); err != nil {
			return fmt.Errorf("publication failed: %w", err)
		}
	}

	purgeStale(stagingDir, o.cfg.Staging.GetRetention())
	return nil
}

// transition updates the status and logs the state change.
func (o *Orchestrator) transition(to State, message string) {
	o.mu.Lock()
	from := o.status.State
	o.status.State = to
	o.status.Message = message
	o.mu.Unlock()

	logger.Infof("State transition: %s -> %s (%s)", from, to, message)
}

// finishRun resets the orchestrator to Idle after the grace delay. A
// failed run's detail message is retained until the next run starts.
func (o *Orchestrator) finishRun(succeeded bool, message string) {
	o.mu.Lock()
	from := o.status.State
	o.status.State = StateIdle
	o.status.Message = message
	o.status.CurrentRunStartedAt = nil
	if succeeded {
		now := time.Now()
		o.status.LastCompletedAt = &now
	}
	o.mu.Unlock()

	logger.Infof("State transition: %s -> %s", from, StateIdle)
}

// sleep pauses for the grace delay but wakes early on context
// cancellation so shutdown is not held hostage by the delay.
func (*Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
