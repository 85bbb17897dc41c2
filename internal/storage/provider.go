// Package storage reads the markdown vault from disk.
package storage

import (
	"context"
	"time"
)

// Provider is the read-only view of the vault used by the note graph.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Scan returns every non-ignored .md file, relative to the root, "/"-separated.
	Scan(ctx context.Context) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// ModTime returns the last modification time of the file at path.
	ModTime(path string) (time.Time, error)
}
