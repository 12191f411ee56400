package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage failure")
	ErrExtraction      = errors.New("text extraction failed")
	ErrUpstream        = errors.New("upstream failure")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// HasKind reports whether err already carries one of the semantic kinds above.
func HasKind(err error) bool {
	for _, kind := range []error{
		ErrJobNotFound, ErrInvalidInput, ErrPayloadTooLarge, ErrConflict,
		ErrStorage, ErrExtraction, ErrUpstream, ErrTemporary,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
