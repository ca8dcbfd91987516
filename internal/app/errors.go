package service

import "errors"

// Service errors.
var (
	// ErrDuplicateCase is returned when a case id was already submitted.
	ErrDuplicateCase = errors.New("duplicate case")

	// ErrBackpressure is returned when the review queue is full or closed.
	ErrBackpressure = errors.New("queue backpressure")

	// ErrNotStarted is returned when the service has not been started.
	ErrNotStarted = errors.New("service not started")
)
