// Package remote provides the SFTP retrieval adapter for legacy export
// files.
package remote

import (
	"context"
	"time"
)

// FileInfo describes one remote directory entry from a listing call.
type FileInfo struct {
	Name       string
	SizeBytes  int64
	ModifiedAt time.Time
	IsRegular  bool
}

// Session is an open connection to the remote file host. Sessions are not
// safe for concurrent use; the sync orchestrator serializes access.
type Session interface {
	// List returns the entries of a remote directory.
	List(dir string) ([]FileInfo, error)

	// Fetch downloads a remote file to a local path and returns the
	// number of bytes transferred.
	Fetch(remotePath, localPath string) (int64, error)

	// Close releases the connection.
	Close() error
}

// Client opens sessions against the remote file host.
type Client interface {
	// Connect dials the host and returns an open session. The context
	// bounds the dial; transfer operations are bounded by the client's
	// configured timeout.
	Connect(ctx context.Context) (Session, error)
}
