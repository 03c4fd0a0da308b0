package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrConfig                = errors.New("invalid configuration")
	ErrUnknownSystematicType = errors.New("unknown systematic type")

	// Reference errors
	ErrInvalidReference = errors.New("invalid field reference")
	ErrCatalogFrozen    = fmt.Errorf("%w: field catalog is frozen", ErrInvalidReference)

	// Data errors
	ErrIO                = errors.New("event source read failed")
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// Shared state errors
	ErrSlotClaimed = errors.New("normalization slot already claimed")
	ErrSlotRange   = errors.New("normalization slot out of range")
)

// Error constructors with context
func NewConfigError(key string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfig, key, reason)
}

func NewUnknownSystematicTypeError(name, kind string) error {
	return fmt.Errorf("%w %q for systematic %s", ErrUnknownSystematicType, kind, name)
}

func NewInvalidReferenceError(field string, where string) error {
	return fmt.Errorf("%w: field %q not present in %s", ErrInvalidReference, field, where)
}

func NewIOError(filename string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrIO, filename)
	}
	return fmt.Errorf("%w: %s: %v", ErrIO, filename, err)
}

func NewDimensionMismatchError(what string, want, got int) error {
	return fmt.Errorf("%w: %s: expected %d, got %d", ErrDimensionMismatch, what, want, got)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrUnknownSystematicType)
}

func IsInvalidReference(err error) bool {
	return errors.Is(err, ErrInvalidReference)
}

func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}

func IsDimensionMismatch(err error) bool {
	return errors.Is(err, ErrDimensionMismatch)
}
