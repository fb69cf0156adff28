package ports

import (
	"context"

	"github.com/contactbook/core/internal/domain/entities"
)

// Supported dispatcher actions
const (
	ActionGet  = "get"
	ActionSave = "save"
)

// ContactService interface for contact book operations
type ContactService interface {
	Dispatch(ctx context.Context, req Request) (*Response, error)
	UpdateContact(ctx context.Context, id int, update entities.ContactUpdate) (*entities.Contact, error)
	DeleteContact(ctx context.Context, id int) error
}

// Request is one external request: an action tag plus its parameters
type Request struct {
	Action string
	Params Params
}

// Params is the parameter bag of a request. Nil means not supplied.
type Params struct {
	ID   *int
	Name *string
}

// Response carries the result of a get request. Both fields are empty when a
// lookup by id found nothing.
type Response struct {
	Contact  *entities.Contact  `json:"contact,omitempty"`
	Contacts []entities.Contact `json:"contacts,omitempty"`
}

// SaveContactRequest is validated before a contact reaches the store
type SaveContactRequest struct {
	ID   *int   `json:"id"`
	Name string `json:"name" validate:"required,max=256"`
}
