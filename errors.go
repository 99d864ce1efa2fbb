package objectdb

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates a configuration problem: an invalid Config, a
	// malformed migration list or use of a client that was never initialized.
	ErrConfig = errors.New("objectdb configuration error")

	// ErrMigration indicates a migration step failed and the upgrade was rolled back.
	ErrMigration = errors.New("objectdb migration failed")

	// ErrNotInitialized is returned by every operation on a client, store or
	// async store that did not come from Init.
	ErrNotInitialized = fmt.Errorf("%w: client not initialized", ErrConfig)

	// ErrClientClosed is returned by operations started after Client.Close.
	ErrClientClosed = errors.New("objectdb client is closed")
)
