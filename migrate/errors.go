package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrNewVersionUnset indicates an upgrade event without a target version.
	ErrNewVersionUnset = errors.New("upgrade target version is unset")

	// ErrMissingMigration indicates no migration is declared for a version
	// the upgrade has to pass through.
	ErrMissingMigration = errors.New("missing migration")

	// ErrMissingUp indicates a migration without an Up step.
	ErrMissingUp = errors.New("migration has no up step")

	// ErrDuplicateVersion indicates two migrations declared for one version.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrMigrationFailed indicates an Up step returned an error.
	ErrMigrationFailed = errors.New("migration failed")
)

// MigrationError reports the version at which an upgrade stopped.
type MigrationError struct {
	Version uint64
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err comes from a malformed migration list
// rather than from a failing Up step.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNewVersionUnset) ||
		errors.Is(err, ErrMissingMigration) ||
		errors.Is(err, ErrMissingUp) ||
		errors.Is(err, ErrDuplicateVersion)
}
