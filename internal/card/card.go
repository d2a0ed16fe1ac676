package card

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/flexcard/internal/shared"
)

// Messages shown after a fulfilled submission.
const (
	MsgAccountUpdated = "Account information updated successfully!"
	MsgEmailSent      = "Email sent successfully!"
)

// Deps bundles the collaborators of a Card.
type Deps struct {
	Accounts  AccountUpdater
	Mailer    DocumentMailer
	Documents DocumentSource
	Guard     Guard
	Validator *Validator
	Observer  Observer
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Guard == nil {
		d.Guard = NewLocalGuard()
	}
	if d.Validator == nil {
		d.Validator = defaultValidator
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Card is one account info card: the two forms, the document selection
// and the status of the last submission of each form.
type Card struct {
	mu   sync.Mutex
	deps Deps

	id              string
	account         AccountForm
	email           EmailForm
	selection       *DocumentSelection
	documents       []Document
	documentsLoaded bool
	accountStatus   Status
	emailStatus     Status
	createdAt       time.Time

	// pending runs once the status has been cleared and before the remote
	// call, so the cleared status can be published.
	pending func(ctx context.Context, form Form) error
}

// New returns a blank card for accountID.
func New(id, accountID string, deps Deps) *Card {
	return &Card{
		deps:      deps.withDefaults(),
		id:        id,
		account:   AccountForm{AccountID: accountID},
		selection: NewDocumentSelection(),
		createdAt: time.Now().UTC(),
	}
}

// Restore rebuilds a card from a stored snapshot.
func Restore(snap Snapshot, deps Deps) *Card {
	selection := snap.Selection
	if selection == nil {
		selection = NewDocumentSelection()
	}
	return &Card{
		deps:            deps.withDefaults(),
		id:              snap.ID,
		account:         snap.Account,
		email:           snap.Email,
		selection:       NewDocumentSelection(selection.IDs()...),
		documents:       append([]Document(nil), snap.Documents...),
		documentsLoaded: snap.DocumentsLoaded,
		accountStatus:   snap.AccountStatus,
		emailStatus:     snap.EmailStatus,
		createdAt:       snap.CreatedAt,
	}
}

// ID returns the card identifier.
func (c *Card) ID() string { return c.id }

// EditAccount applies user input to the account form.
func (c *Card) EditAccount(patch AccountPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	patch.apply(&c.account)
}

// EditEmail applies user input to the email form.
func (c *Card) EditEmail(patch EmailPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	patch.apply(&c.email)
}

// ToggleDocumentSelection selects or deselects a document.
func (c *Card) ToggleDocumentSelection(documentID string, selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Toggle(documentID, selected)
}

// LoadDocuments fetches the document list on first use and returns the
// cached list afterwards.
func (c *Card) LoadDocuments(ctx context.Context) ([]Document, error) {
	c.mu.Lock()
	if c.documentsLoaded || c.deps.Documents == nil {
		docs := append([]Document(nil), c.documents...)
		c.mu.Unlock()
		return docs, nil
	}
	accountID := c.account.AccountID
	c.mu.Unlock()

	docs, err := c.deps.Documents.ListDocuments(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("card: load documents: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = append([]Document(nil), docs...)
	c.documentsLoaded = true
	return docs, nil
}

// HasDocument reports whether id is in the loaded document list.
func (c *Card) HasDocument(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.documents {
		if doc.ID == id {
			return true
		}
	}
	return false
}

// AccountStatus returns the status of the last account submission.
func (c *Card) AccountStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountStatus
}

// EmailStatus returns the status of the last email submission.
func (c *Card) EmailStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emailStatus
}

// SubmitAccountUpdate validates the account form and, when it passes,
// hands it to the account updater. Validation and remote failures end up
// in the returned status; the error is only set when the submission could
// not be attempted.
func (c *Card) SubmitAccountUpdate(ctx context.Context) (Status, error) {
	return c.submit(ctx, FormAccount, &c.accountStatus, func(ctx context.Context) (Status, Outcome) {
		c.mu.Lock()
		form := c.account
		c.mu.Unlock()

		if err := c.deps.Validator.Account(form); err != nil {
			return c.validationStatus(err), OutcomeValidationError
		}
		// The weekday rule already parsed the date successfully.
		startDate, _ := ParseStartDate(form.StartDate)
		if c.deps.Accounts == nil {
			return c.remoteStatus(FormAccount, errors.New("card: no account updater configured")), OutcomeRemoteError
		}
		_, err := c.deps.Accounts.UpdateAccountRecord(ctx, AccountUpdate{
			AccountID:   form.AccountID,
			AccountName: form.AccountName,
			Phone:       form.Phone,
			Website:     form.Website,
			Email:       form.Email,
			StartDate:   startDate,
		})
		if err != nil {
			return c.remoteStatus(FormAccount, err), OutcomeRemoteError
		}
		return Succeeded(MsgAccountUpdated), OutcomeSuccess
	})
}

// SubmitEmailWithDocuments validates the email form and, when it passes,
// sends the selected documents.
func (c *Card) SubmitEmailWithDocuments(ctx context.Context) (Status, error) {
	return c.submit(ctx, FormEmail, &c.emailStatus, func(ctx context.Context) (Status, Outcome) {
		c.mu.Lock()
		form := c.email
		accountID := c.account.AccountID
		ids := c.selection.IDs()
		c.mu.Unlock()

		if err := c.deps.Validator.Email(form); err != nil {
			return c.validationStatus(err), OutcomeValidationError
		}
		if c.deps.Mailer == nil {
			return c.remoteStatus(FormEmail, errors.New("card: no mailer configured")), OutcomeRemoteError
		}
		_, err := c.deps.Mailer.SendDocumentsByEmail(ctx, EmailRequest{
			AccountID:   accountID,
			ToAddress:   form.ToAddress,
			Subject:     form.Subject,
			DocumentIDs: ids,
		})
		if err != nil {
			return c.remoteStatus(FormEmail, err), OutcomeRemoteError
		}
		return Succeeded(MsgEmailSent), OutcomeSuccess
	})
}

func (c *Card) submit(ctx context.Context, form Form, status *Status, run func(context.Context) (Status, Outcome)) (Status, error) {
	release, ok, err := c.deps.Guard.TryAcquire(ctx, shared.SubmissionLockKey(c.id, string(form)))
	if err != nil {
		return c.statusOf(status), fmt.Errorf("card: acquire %s guard: %w", form, err)
	}
	if !ok {
		c.deps.Observer.ObserveSubmission(form, OutcomeBusy)
		return c.statusOf(status), ErrSubmissionInFlight
	}
	defer release()

	c.mu.Lock()
	*status = Idle()
	c.mu.Unlock()
	if c.pending != nil {
		if err := c.pending(ctx, form); err != nil {
			return Idle(), fmt.Errorf("card: publish pending %s status: %w", form, err)
		}
	}

	next, outcome := run(ctx)

	c.mu.Lock()
	*status = next
	c.mu.Unlock()
	c.deps.Observer.ObserveSubmission(form, outcome)
	return next, nil
}

func (c *Card) statusOf(status *Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *status
}

func (c *Card) validationStatus(err error) Status {
	_, msg := result(err)
	return Failed(msg)
}

func (c *Card) remoteStatus(form Form, err error) Status {
	msg, ok := FailureMessage(err)
	if !ok {
		c.deps.Logger.Warn("remote failure without message",
			slog.String("card_id", c.id),
			slog.String("form", string(form)),
			slog.Any("error", err))
	}
	return Failed(msg)
}

// Snapshot captures the card state for storage.
func (c *Card) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:              c.id,
		Account:         c.account,
		Email:           c.email,
		Selection:       NewDocumentSelection(c.selection.IDs()...),
		Documents:       append([]Document(nil), c.documents...),
		DocumentsLoaded: c.documentsLoaded,
		AccountStatus:   c.accountStatus,
		EmailStatus:     c.emailStatus,
		CreatedAt:       c.createdAt,
	}
}
