package entities

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrContactNotFound = errors.New("contact not found")
	ErrIOFailure       = errors.New("backing file i/o failure")
	ErrValidation      = errors.New("validation failed")

	ErrIDSpaceExhausted = errors.New("no contact id left to assign")
)

// Contact represents a single entry in the contact book
type Contact struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ContactUpdate holds the fields of a partial update. Nil fields are left as-is.
type ContactUpdate struct {
	Name *string `json:"name,omitempty"`
}

// Apply merges the supplied fields onto c
func (u ContactUpdate) Apply(c *Contact) {
	if u.Name != nil {
		c.Name = *u.Name
	}
}

// IsEmpty reports whether the update carries no fields
func (u ContactUpdate) IsEmpty() bool {
	return u.Name == nil
}

// IOError describes a failed read or write of the backing file
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIOFailure) match any IOError
func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

// ValidationError is returned for malformed input before the store is touched
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
