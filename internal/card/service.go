package card

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownDocument indicates a selection of a document the account does not have.
var ErrUnknownDocument = errors.New("document not found for account")

// Service runs card operations against stored snapshots.
type Service struct {
	store Store
	deps  Deps
}

// NewService constructs a Service.
func NewService(store Store, deps Deps) *Service {
	return &Service{store: store, deps: deps.withDefaults()}
}

// Create opens a blank card for accountID and loads its documents.
func (s *Service) Create(ctx context.Context, accountID string) (Snapshot, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Snapshot{}, fmt.Errorf("card: new id: %w", err)
	}
	c := New(id.String(), accountID, s.deps)
	if _, err := c.LoadDocuments(ctx); err != nil {
		return Snapshot{}, err
	}
	snap := c.Snapshot()
	if err := s.store.Create(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Get returns the stored card.
func (s *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	return s.store.Get(ctx, id)
}

// EditAccount applies patch to the account form.
func (s *Service) EditAccount(ctx context.Context, id string, patch AccountPatch) (Snapshot, error) {
	return s.mutate(ctx, id, func(c *Card) error {
		c.EditAccount(patch)
		return nil
	})
}

// EditEmail applies patch to the email form.
func (s *Service) EditEmail(ctx context.Context, id string, patch EmailPatch) (Snapshot, error) {
	return s.mutate(ctx, id, func(c *Card) error {
		c.EditEmail(patch)
		return nil
	})
}

// ToggleDocument selects or deselects a document of the card's account.
func (s *Service) ToggleDocument(ctx context.Context, id, documentID string, selected bool) (Snapshot, error) {
	return s.mutate(ctx, id, func(c *Card) error {
		if selected && !c.HasDocument(documentID) {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, documentID)
		}
		c.ToggleDocumentSelection(documentID, selected)
		return nil
	})
}

// SubmitAccount runs the account submission of the card.
func (s *Service) SubmitAccount(ctx context.Context, id string) (Status, Snapshot, error) {
	return s.submit(ctx, id, (*Card).SubmitAccountUpdate, func(snap *Snapshot, st Status) {
		snap.AccountStatus = st
	})
}

// SubmitEmail runs the email submission of the card.
func (s *Service) SubmitEmail(ctx context.Context, id string) (Status, Snapshot, error) {
	return s.submit(ctx, id, (*Card).SubmitEmailWithDocuments, func(snap *Snapshot, st Status) {
		snap.EmailStatus = st
	})
}

// submit runs outside the store transaction so that the remote call does
// not hold a watch. The cleared status is stored before the remote call and
// the resulting status after it.
func (s *Service) submit(
	ctx context.Context,
	id string,
	run func(*Card, context.Context) (Status, error),
	record func(*Snapshot, Status),
) (Status, Snapshot, error) {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return Status{}, Snapshot{}, err
	}
	c := Restore(snap, s.deps)
	c.pending = func(ctx context.Context, _ Form) error {
		_, err := s.store.Update(ctx, id, func(latest *Snapshot) error {
			record(latest, Idle())
			return nil
		})
		return err
	}
	status, err := run(c, ctx)
	if err != nil {
		return status, snap, err
	}
	updated, err := s.store.Update(ctx, id, func(latest *Snapshot) error {
		record(latest, status)
		return nil
	})
	if err != nil {
		return status, snap, err
	}
	return status, updated, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Card) error) (Snapshot, error) {
	return s.store.Update(ctx, id, func(snap *Snapshot) error {
		c := Restore(*snap, s.deps)
		if err := fn(c); err != nil {
			return err
		}
		*snap = c.Snapshot()
		return nil
	})
}
