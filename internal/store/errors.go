package store

import "errors"

var (
	ErrNotFound         = errors.New("row not found")
	ErrSessionCompleted = errors.New("quiz session already completed")
)
