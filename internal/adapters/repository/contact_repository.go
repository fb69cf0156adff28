package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/contactbook/core/internal/domain/entities"
	"github.com/contactbook/core/internal/infrastructure/logger"
	"github.com/contactbook/core/internal/ports"
)

const fileMode os.FileMode = 0o644

// ContactRepositoryImpl implements the ContactRepository interface on top of a
// single JSON file. The whole collection lives in memory; every mutation
// rewrites the file in full.
//
// If a save fails after Add has appended, the new record stays in memory while
// the file keeps its previous contents. Callers should treat the store as
// diverged and abort.
type ContactRepositoryImpl struct {
	fs          afero.Fs
	path        string
	atomicWrite bool
	logger      *logger.Logger

	mu       sync.Mutex
	contacts []entities.Contact
	loaded   bool
}

// Option configures a ContactRepositoryImpl
type Option func(*ContactRepositoryImpl)

// WithAtomicWrite controls whether saves go through a temp file and rename
func WithAtomicWrite(enabled bool) Option {
	return func(r *ContactRepositoryImpl) {
		r.atomicWrite = enabled
	}
}

// NewContactRepository creates a new contact repository backed by path on fs
func NewContactRepository(fs afero.Fs, path string, log *logger.Logger, opts ...Option) *ContactRepositoryImpl {
	r := &ContactRepositoryImpl{
		fs:          fs,
		path:        path,
		atomicWrite: true,
		logger:      log.WithComponent("store"),
		contacts:    []entities.Contact{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.ContactRepository = (*ContactRepositoryImpl)(nil)

// Path returns the backing file path
func (r *ContactRepositoryImpl) Path() string {
	return r.path
}

// Loaded reports whether Load has completed successfully
func (r *ContactRepositoryImpl) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Load reads the backing file into memory. A missing file yields an empty
// collection. On any other failure the in-memory state is left untouched.
func (r *ContactRepositoryImpl) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	contacts, err := r.readFile()
	r.logger.LogStoreOperation("load", r.path, len(contacts), msSince(start), err)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = contacts
	r.loaded = true
	return nil
}

func (r *ContactRepositoryImpl) readFile() ([]entities.Contact, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []entities.Contact{}, nil
		}
		return nil, &entities.IOError{Op: "load", Path: r.path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []entities.Contact{}, nil
	}

	if err := validateDocument(data); err != nil {
		return nil, &entities.IOError{Op: "load", Path: r.path, Err: err}
	}

	contacts := []entities.Contact{}
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, &entities.IOError{Op: "load", Path: r.path, Err: err}
	}

	seen := make(map[int]struct{}, len(contacts))
	for _, c := range contacts {
		if _, dup := seen[c.ID]; dup {
			return nil, &entities.IOError{Op: "load", Path: r.path, Err: fmt.Errorf("duplicate contact id %d", c.ID)}
		}
		seen[c.ID] = struct{}{}
	}

	return contacts, nil
}

// Save writes the full in-memory collection to the backing file
func (r *ContactRepositoryImpl) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist(ctx)
}

// persist must be called with mu held
func (r *ContactRepositoryImpl) persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := r.writeFile(r.contacts)
	r.logger.LogStoreOperation("save", r.path, len(r.contacts), msSince(start), err)
	return err
}

func (r *ContactRepositoryImpl) writeFile(contacts []entities.Contact) error {
	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return &entities.IOError{Op: "save", Path: r.path, Err: err}
	}

	dir := filepath.Dir(r.path)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return &entities.IOError{Op: "save", Path: r.path, Err: err}
	}

	if !r.atomicWrite {
		if err := afero.WriteFile(r.fs, r.path, data, fileMode); err != nil {
			return &entities.IOError{Op: "save", Path: r.path, Err: err}
		}
		return nil
	}

	if err := r.writeAtomic(dir, data); err != nil {
		return &entities.IOError{Op: "save", Path: r.path, Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file in dir and renames it over the target
func (r *ContactRepositoryImpl) writeAtomic(dir string, data []byte) error {
	tmp, err := afero.TempFile(r.fs, dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	if err := r.fs.Chmod(tmpName, fileMode); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	if err := r.fs.Rename(tmpName, r.path); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	return nil
}

// GetByID returns a copy of the contact with the given id
func (r *ContactRepositoryImpl) GetByID(ctx context.Context, id int) (*entities.Contact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, false
	}
	c := r.contacts[i]
	return &c, true
}

// List returns a copy of every contact in insertion order
func (r *ContactRepositoryImpl) List(ctx context.Context) []entities.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entities.Contact, len(r.contacts))
	copy(out, r.contacts)
	return out
}

// Add appends a contact and persists the collection. A missing, non-positive
// or already used id is replaced with a freshly generated one.
func (r *ContactRepositoryImpl) Add(ctx context.Context, nc ports.NewContact) (entities.Contact, error) {
	if err := ctx.Err(); err != nil {
		return entities.Contact{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contact := entities.Contact{Name: nc.Name}
	switch {
	case nc.ID != nil && *nc.ID > 0 && r.indexOf(*nc.ID) < 0:
		contact.ID = *nc.ID
	default:
		id, err := r.nextID()
		if err != nil {
			return entities.Contact{}, err
		}
		contact.ID = id

		switch {
		case nc.ID == nil:
		case *nc.ID <= 0:
			r.logger.Debugw("Non-positive contact id treated as absent", "requested_id", *nc.ID, "assigned_id", contact.ID)
		default:
			r.logger.Warnw("Contact id already in use, assigning a new one", "requested_id", *nc.ID, "assigned_id", contact.ID)
		}
	}

	r.contacts = append(r.contacts, contact)

	if err := r.persist(ctx); err != nil {
		return entities.Contact{}, err
	}

	return contact, nil
}

// Update merges the supplied fields onto an existing contact and persists
func (r *ContactRepositoryImpl) Update(ctx context.Context, id int, update entities.ContactUpdate) (entities.Contact, error) {
	if err := ctx.Err(); err != nil {
		return entities.Contact{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entities.Contact{}, entities.ErrContactNotFound
	}

	update.Apply(&r.contacts[i])
	updated := r.contacts[i]

	if err := r.persist(ctx); err != nil {
		return entities.Contact{}, err
	}

	return updated, nil
}

// Delete removes the contact with the given id and persists
func (r *ContactRepositoryImpl) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entities.ErrContactNotFound
	}

	r.contacts = append(r.contacts[:i], r.contacts[i+1:]...)

	if err := r.persist(ctx); err != nil {
		return err
	}

	return nil
}

// nextID returns one more than the highest id present, or 1 when empty.
// Ids freed by deleting the highest record are handed out again.
func (r *ContactRepositoryImpl) nextID() (int, error) {
	highest := 0
	for _, c := range r.contacts {
		if c.ID > highest {
			highest = c.ID
		}
	}
	if highest == math.MaxInt {
		return 0, entities.ErrIDSpaceExhausted
	}
	return highest + 1, nil
}

func (r *ContactRepositoryImpl) indexOf(id int) int {
	for i, c := range r.contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
