package core

import "errors"

// Store sentinels; adapters wrap their driver errors into these.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
