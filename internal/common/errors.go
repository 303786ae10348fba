// Package common defines sentinel errors shared across journalsync
// packages. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// Migration ledger errors.
	ErrDuplicateMigration = errors.New("duplicate migration id")
	ErrNothingToMigrate   = errors.New("no entries to migrate")

	// Configuration errors.
	ErrNoCredentials = errors.New("credentials are not configured")

	// Export errors.
	ErrUnsupportedExport = errors.New("unsupported export format")
)
