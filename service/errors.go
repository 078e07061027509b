package service

import "errors"

var (
	// ErrEmptySelection is returned when there is nothing to put on an offer
	ErrEmptySelection = errors.New("selection is empty")
	// ErrResourceUnavailable marks a generation aborted by a missing asset or a failed lookup
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrUnknownVariant is returned for a DOCX template variant that is not configured
	ErrUnknownVariant = errors.New("unknown template variant")
)
