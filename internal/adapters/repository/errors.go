package repository

import "errors"

// Sentinel kinds for review store errors.
var (
	ErrNotFound     = errors.New("review not found")
	ErrInvalidLimit = errors.New("invalid recent limit")
)
