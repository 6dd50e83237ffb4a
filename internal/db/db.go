package db

import (
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert loses a race on a unique key.
	// Callers on the discovery and registration paths treat it as "someone
	// else already created it" and refetch.
	ErrDuplicate = errors.New("duplicate key")
	ErrInternal  = errors.New("")
)

type DB interface {
	Hosts
	Credentials
	Clients
	Actors
	Social
	Boxes
}
