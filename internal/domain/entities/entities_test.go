package entities

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactUpdateApply(t *testing.T) {
	c := Contact{ID: 1, Name: "Alice"}

	ContactUpdate{}.Apply(&c)
	assert.Equal(t, Contact{ID: 1, Name: "Alice"}, c)

	name := "Bob"
	ContactUpdate{Name: &name}.Apply(&c)
	assert.Equal(t, Contact{ID: 1, Name: "Bob"}, c)
}

func TestContactUpdateIsEmpty(t *testing.T) {
	assert.True(t, ContactUpdate{}.IsEmpty())

	name := ""
	assert.False(t, ContactUpdate{Name: &name}.IsEmpty())
}

func TestIOErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("add contact: %w", &IOError{Op: "save", Path: "contacts.json", Err: os.ErrPermission})

	assert.True(t, errors.Is(err, ErrIOFailure))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.False(t, errors.Is(err, ErrContactNotFound))
	assert.Contains(t, err.Error(), "save contacts.json")

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "save", ioErr.Op)
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "name", Message: "missing or invalid name"}

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrIOFailure))
	assert.Equal(t, "name: missing or invalid name", err.Error())
	assert.Equal(t, "bad input", (&ValidationError{Message: "bad input"}).Error())
}
