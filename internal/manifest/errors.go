package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedManifest marks a workspace whose root or member manifests
	// are missing, unreadable, or internally inconsistent.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrLockfileMismatch marks a lockfile that does not cover every declared
	// dependency, usually because a manifest changed without regenerating it.
	ErrLockfileMismatch = errors.New("lockfile mismatch")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedManifest, fmt.Sprintf(format, args...))
}

func lockMismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLockfileMismatch, fmt.Sprintf(format, args...))
}
