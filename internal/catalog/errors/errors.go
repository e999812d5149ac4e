package errors

import "errors"

var (
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	ErrTrainerNotFound = errors.New("trainer not found")

	ErrDuplicateOccurrence = errors.New("occurrence already exists")
)
