package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactbook/core/internal/adapters/repository"
	"github.com/contactbook/core/internal/domain/entities"
	"github.com/contactbook/core/internal/infrastructure/logger"
	"github.com/contactbook/core/internal/infrastructure/metrics"
	"github.com/contactbook/core/internal/ports"
)

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

// recordingRepo counts calls so tests can assert the store was not touched
type recordingRepo struct {
	calls    []string
	contacts []entities.Contact
	addErr   error
}

func (r *recordingRepo) Load(ctx context.Context) error {
	r.calls = append(r.calls, "load")
	return nil
}

func (r *recordingRepo) Save(ctx context.Context) error {
	r.calls = append(r.calls, "save")
	return nil
}

func (r *recordingRepo) GetByID(ctx context.Context, id int) (*entities.Contact, bool) {
	r.calls = append(r.calls, "get")
	for _, c := range r.contacts {
		if c.ID == id {
			c := c
			return &c, true
		}
	}
	return nil, false
}

func (r *recordingRepo) List(ctx context.Context) []entities.Contact {
	r.calls = append(r.calls, "list")
	return append([]entities.Contact{}, r.contacts...)
}

func (r *recordingRepo) Add(ctx context.Context, nc ports.NewContact) (entities.Contact, error) {
	r.calls = append(r.calls, "add")
	if r.addErr != nil {
		return entities.Contact{}, r.addErr
	}
	c := entities.Contact{ID: len(r.contacts) + 1, Name: nc.Name}
	r.contacts = append(r.contacts, c)
	return c, nil
}

func (r *recordingRepo) Update(ctx context.Context, id int, update entities.ContactUpdate) (entities.Contact, error) {
	r.calls = append(r.calls, "update")
	return entities.Contact{}, entities.ErrContactNotFound
}

func (r *recordingRepo) Delete(ctx context.Context, id int) error {
	r.calls = append(r.calls, "delete")
	return entities.ErrContactNotFound
}

func newService(t *testing.T) (*ContactService, *repository.ContactRepositoryImpl, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo := repository.NewContactRepository(fs, "/contacts.json", logger.NewNop())
	require.NoError(t, repo.Load(context.Background()))
	return NewContactService(repo, metrics.New(""), logger.NewNop()), repo, fs
}

func TestDispatchSaveThenGet(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	resp, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr("  Alice ")}})
	require.NoError(t, err)
	assert.Nil(t, resp)

	resp, err = svc.Dispatch(ctx, ports.Request{Action: ports.ActionGet, Params: ports.Params{ID: intPtr(1)}})
	require.NoError(t, err)
	require.NotNil(t, resp.Contact)
	assert.Equal(t, entities.Contact{ID: 1, Name: "Alice"}, *resp.Contact)
}

func TestDispatchSaveWithDuplicateID(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob"} {
		_, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionSave, Params: ports.Params{ID: intPtr(1), Name: strPtr(name)}})
		require.NoError(t, err)
	}

	assert.Equal(t, []entities.Contact{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, repo.List(ctx))
}

func TestDispatchGetListing(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	resp, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionGet})
	require.NoError(t, err)
	assert.Equal(t, []entities.Contact{}, resp.Contacts)

	for _, name := range []string{"Alice", "Bob"} {
		_, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr(name)}})
		require.NoError(t, err)
	}

	resp, err = svc.Dispatch(ctx, ports.Request{Action: ports.ActionGet})
	require.NoError(t, err)
	assert.Nil(t, resp.Contact)
	assert.Equal(t, []entities.Contact{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, resp.Contacts)
}

func TestDispatchGetNotFoundIsNotAnError(t *testing.T) {
	svc, _, _ := newService(t)

	resp, err := svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionGet, Params: ports.Params{ID: intPtr(42)}})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Contact)
	assert.Nil(t, resp.Contacts)
}

func TestDispatchSaveRejectsBlankName(t *testing.T) {
	tests := []struct {
		name   string
		params ports.Params
	}{
		{name: "missing", params: ports.Params{}},
		{name: "empty", params: ports.Params{Name: strPtr("")}},
		{name: "whitespace", params: ports.Params{Name: strPtr("  ")}},
		{name: "tabs and newlines", params: ports.Params{Name: strPtr("\t\n"), ID: intPtr(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &recordingRepo{}
			svc := NewContactService(repo, nil, logger.NewNop())

			resp, err := svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionSave, Params: tt.params})

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entities.ErrValidation))
			assert.Contains(t, err.Error(), "missing or invalid name")
			assert.Empty(t, repo.calls)
		})
	}
}

func TestDispatchSaveRejectsOverlongName(t *testing.T) {
	repo := &recordingRepo{}
	svc := NewContactService(repo, nil, logger.NewNop())
	long := make([]byte, 257)
	for i := range long {
		long[i] = 'a'
	}

	_, err := svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr(string(long))}})

	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.Empty(t, repo.calls)
}

func TestDispatchSavePropagatesIOFailure(t *testing.T) {
	ioErr := &entities.IOError{Op: "save", Path: "/contacts.json", Err: errors.New("disk full")}
	repo := &recordingRepo{addErr: ioErr}
	svc := NewContactService(repo, nil, logger.NewNop())

	_, err := svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr("Alice")}})

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrIOFailure)
	var target *entities.IOError
	require.ErrorAs(t, err, &target)
	assert.Same(t, ioErr, target)
}

func TestDispatchUnknownActionIsNoop(t *testing.T) {
	for _, action := range []string{"", "delete", "GET", "list"} {
		repo := &recordingRepo{}
		recorder := metrics.New("")
		svc := NewContactService(repo, recorder, logger.NewNop())

		resp, err := svc.Dispatch(context.Background(), ports.Request{Action: action, Params: ports.Params{ID: intPtr(1), Name: strPtr("x")}})

		assert.NoError(t, err, action)
		assert.Nil(t, resp, action)
		assert.NotContains(t, repo.calls, "add", action)
		assert.NotContains(t, repo.calls, "delete", action)
	}
}

func TestDispatchRecordsMetrics(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := repository.NewContactRepository(fs, "/contacts.json", logger.NewNop())
	require.NoError(t, repo.Load(context.Background()))
	recorder := metrics.New("")
	svc := NewContactService(repo, recorder, logger.NewNop())

	_, err := svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr("Alice")}})
	require.NoError(t, err)
	_, err = svc.Dispatch(context.Background(), ports.Request{Action: ports.ActionSave})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(recorder.Registry(), "contacts_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateContact(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr("Alice")}})
	require.NoError(t, err)

	c, err := svc.UpdateContact(ctx, 1, entities.ContactUpdate{Name: strPtr(" Bob ")})
	require.NoError(t, err)
	assert.Equal(t, entities.Contact{ID: 1, Name: "Bob"}, *c)

	c, err = svc.UpdateContact(ctx, 1, entities.ContactUpdate{})
	require.NoError(t, err)
	assert.Equal(t, entities.Contact{ID: 1, Name: "Bob"}, *c)

	_, err = svc.UpdateContact(ctx, 1, entities.ContactUpdate{Name: strPtr("   ")})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.UpdateContact(ctx, 9, entities.ContactUpdate{Name: strPtr("Carol")})
	assert.ErrorIs(t, err, entities.ErrContactNotFound)
}

func TestDeleteContact(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Dispatch(ctx, ports.Request{Action: ports.ActionSave, Params: ports.Params{Name: strPtr("Alice")}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContact(ctx, 1))
	assert.Empty(t, repo.List(ctx))

	assert.ErrorIs(t, svc.DeleteContact(ctx, 1), entities.ErrContactNotFound)
}
