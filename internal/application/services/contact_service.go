package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/contactbook/core/internal/domain/entities"
	"github.com/contactbook/core/internal/infrastructure/logger"
	"github.com/contactbook/core/internal/infrastructure/metrics"
	"github.com/contactbook/core/internal/ports"
)

const invalidNameMessage = "missing or invalid name"

// ContactService routes one external request to one contact repository call
type ContactService struct {
	contactRepo ports.ContactRepository
	validate    *validator.Validate
	metrics     *metrics.Recorder
	logger      *logger.Logger
}

// NewContactService creates a new contact service
func NewContactService(contactRepo ports.ContactRepository, recorder *metrics.Recorder, logger *logger.Logger) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		validate:    validator.New(),
		metrics:     recorder,
		logger:      logger.WithComponent("dispatcher"),
	}
}

var _ ports.ContactService = (*ContactService)(nil)

// Dispatch validates req and performs the matching repository operation.
// A get returns the matching contact or the full listing; save and unknown
// actions return a nil response.
func (s *ContactService) Dispatch(ctx context.Context, req ports.Request) (*ports.Response, error) {
	log := s.logger.WithRequestID(uuid.NewString()).WithFields("action", req.Action)
	start := time.Now()

	var (
		resp *ports.Response
		err  error
	)

	switch req.Action {
	case ports.ActionGet:
		resp = s.get(ctx, log, req.Params)
	case ports.ActionSave:
		err = s.save(ctx, log, req.Params)
	default:
		log.Warnw("Unknown or missing action, nothing to do")
		s.observe("unknown", metrics.OutcomeNoop, start)
		return nil, nil
	}

	if err != nil {
		s.observe(req.Action, metrics.OutcomeError, start)
		return nil, err
	}

	s.observe(req.Action, metrics.OutcomeSuccess, start)
	return resp, nil
}

func (s *ContactService) get(ctx context.Context, log *logger.Logger, params ports.Params) *ports.Response {
	if params.ID == nil {
		contacts := s.contactRepo.List(ctx)
		log.Debugw("Listed contacts", "count", len(contacts))
		return &ports.Response{Contacts: contacts}
	}

	contact, ok := s.contactRepo.GetByID(ctx, *params.ID)
	if !ok {
		log.Warnw("Contact not found", "contact_id", *params.ID)
		return &ports.Response{}
	}

	return &ports.Response{Contact: contact}
}

func (s *ContactService) save(ctx context.Context, log *logger.Logger, params ports.Params) error {
	req := ports.SaveContactRequest{ID: params.ID}
	if params.Name != nil {
		req.Name = strings.TrimSpace(*params.Name)
	}

	if err := s.validate.Struct(req); err != nil {
		log.Warnw("Rejected save request", "error", err)
		return toValidationError(err)
	}

	contact, err := s.contactRepo.Add(ctx, ports.NewContact{ID: req.ID, Name: req.Name})
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	log.Infow("Contact saved", "contact_id", contact.ID, "name", contact.Name)
	return nil
}

// UpdateContact applies a partial update to an existing contact
func (s *ContactService) UpdateContact(ctx context.Context, id int, update entities.ContactUpdate) (*entities.Contact, error) {
	start := time.Now()

	if update.IsEmpty() {
		s.logger.Debugw("Update carries no fields, contact is rewritten unchanged", "contact_id", id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := s.validate.Var(name, "required,max=256"); err != nil {
			s.observe("update", metrics.OutcomeError, start)
			return nil, &entities.ValidationError{Field: "name", Message: invalidNameMessage}
		}
		update.Name = &name
	}

	contact, err := s.contactRepo.Update(ctx, id, update)
	if err != nil {
		s.observe("update", metrics.OutcomeError, start)
		if errors.Is(err, entities.ErrContactNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	s.observe("update", metrics.OutcomeSuccess, start)
	s.logger.Infow("Contact updated", "contact_id", contact.ID, "name", contact.Name)
	return &contact, nil
}

// DeleteContact removes a contact by id
func (s *ContactService) DeleteContact(ctx context.Context, id int) error {
	start := time.Now()

	if err := s.contactRepo.Delete(ctx, id); err != nil {
		s.observe("delete", metrics.OutcomeError, start)
		if errors.Is(err, entities.ErrContactNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	s.observe("delete", metrics.OutcomeSuccess, start)
	s.logger.Infow("Contact deleted", "contact_id", id)
	return nil
}

func (s *ContactService) observe(operation, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(operation, outcome, start)
	s.metrics.SetRecords(len(s.contactRepo.List(context.Background())))
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := strings.ToLower(fieldErrs[0].Field())
		if field == "name" {
			return &entities.ValidationError{Field: field, Message: invalidNameMessage}
		}
		return &entities.ValidationError{Field: field, Message: fieldErrs[0].Error()}
	}
	return &entities.ValidationError{Message: err.Error()}
}
