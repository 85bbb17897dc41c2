package storage

import (
	"errors"
	"fmt"

	"github.com/starford/vaultgraph/internal/apperr"
)

// FilesystemError reports that the vault root itself cannot be used. It is the
// only failure that aborts a build.
type FilesystemError struct {
	Root string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("storage: vault %s: %v", e.Root, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Is makes every FilesystemError match apperr.ErrVaultUnavailable.
func (e *FilesystemError) Is(target error) bool {
	return target == apperr.ErrVaultUnavailable
}

// IsFilesystemError reports whether err wraps a *FilesystemError.
func IsFilesystemError(err error) bool {
	var fe *FilesystemError
	return errors.As(err, &fe)
}
