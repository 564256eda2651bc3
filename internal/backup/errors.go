package backup

import "errors"

var (
	// ErrNotAdmin is returned when a full-scope backup or restore is
	// attempted by a regular user. Nothing is read or written in that case.
	ErrNotAdmin = errors.New("administrator rights required for full backups")

	// ErrInvalidArchive is returned when a container is missing its metadata
	// entry or the metadata doesn't parse. The restore aborts before any
	// database writes.
	ErrInvalidArchive = errors.New("invalid backup archive")
)
