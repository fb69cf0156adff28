package ports

import (
	"context"

	"github.com/contactbook/core/internal/domain/entities"
)

// ContactRepository defines the interface for contact data operations.
// Load must be called once before any other method.
type ContactRepository interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	GetByID(ctx context.Context, id int) (*entities.Contact, bool)
	List(ctx context.Context) []entities.Contact
	Add(ctx context.Context, contact NewContact) (entities.Contact, error)
	Update(ctx context.Context, id int, update entities.ContactUpdate) (entities.Contact, error)
	Delete(ctx context.Context, id int) error
}

// NewContact is a contact to be added. A nil ID asks the store to assign one.
type NewContact struct {
	ID   *int
	Name string
}
