// Package sync implements the synchronization orchestrator: the state
// machine that sequences remote retrieval, record parsing, and staging
// cleanup under a single-flight guard.
package sync

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/candleworks/catalogsync/internal/remote"
)

// State is the current phase of the orchestrator.
type State string

// Orchestrator states. Idle is both the initial state and the state every
// run eventually resets to; Error is reachable from any non-Idle state.
const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateDownloading State = "downloading"
	StateParsing     State = "parsing"
	StateFinalizing  State = "finalizing"
	StateCompleted   State = "completed"
	StateError       State = "error"
)

// Trigger identifies what initiated a run. It affects logging and the run
// record only, never control flow.
type Trigger string

// Trigger sources.
const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Status is a snapshot of the orchestrator's externally visible state.
// Reads always receive a copy, never a reference to mutating state.
type Status struct {
	State               State      `json:"state"`
	Message             string     `json:"message"`
	LastCompletedAt     *time.Time `json:"last_completed_at,omitempty"`
	CurrentRunStartedAt *time.Time `json:"current_run_started_at,omitempty"`
}

// AlreadyRunningError is returned when a trigger arrives while a run is
// active. It carries the state observed at rejection time.
type AlreadyRunningError struct {
	State State
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("sync already running: current state is %s", e.State)
}

// ErrNoMatchingFile is returned when the remote listing contains no
// regular file matching the configured pattern.
var ErrNoMatchingFile = errors.New("no remote file matches the configured pattern")

// selectLatest picks the export file to fetch: regular files matching the
// glob pattern, most recently modified first. When two files share the
// latest modification timestamp, the name that sorts lexicographically
// last wins; the rule is deterministic so repeated listings of the same
// directory always select the same file.
func selectLatest(entries []remote.FileInfo, pattern string) (remote.FileInfo, error) {
	candidates := make([]remote.FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsRegular {
			continue
		}
		// Pattern validity is checked at config load; Match cannot fail here.
		if ok, _ := path.Match(pattern, e.Name); ok {
			candidates = append(candidates, e)
		}
	}

	if len(candidates) == 0 {
		return remote.FileInfo{}, ErrNoMatchingFile
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].ModifiedAt.Equal(candidates[j].ModifiedAt) {
			return candidates[i].ModifiedAt.After(candidates[j].ModifiedAt)
		}
		return candidates[i].Name > candidates[j].Name
	})

	return candidates[0], nil
}
