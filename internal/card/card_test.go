package card

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	mu      sync.Mutex
	calls   []AccountUpdate
	err     error
	during  func()
	release chan struct{}
	entered chan struct{}
}

func (f *fakeAccounts) UpdateAccountRecord(ctx context.Context, update AccountUpdate) (AccountUpdateResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, update)
	f.mu.Unlock()
	if f.during != nil {
		f.during()
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return AccountUpdateResult{}, f.err
	}
	return AccountUpdateResult{AccountID: update.AccountID, UpdatedAt: time.Now()}, nil
}

func (f *fakeAccounts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMailer struct {
	calls []EmailRequest
	err   error
}

func (f *fakeMailer) SendDocumentsByEmail(ctx context.Context, req EmailRequest) (EmailSendResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return EmailSendResult{}, f.err
	}
	return EmailSendResult{MessageID: "task-1"}, nil
}

type fakeDocuments struct {
	calls int
	docs  []Document
	err   error
}

func (f *fakeDocuments) ListDocuments(ctx context.Context, accountID string) ([]Document, error) {
	f.calls++
	return f.docs, f.err
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingObserver) ObserveSubmission(_ Form, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func fillAccount(c *Card, form AccountForm) {
	c.EditAccount(AccountPatch{
		AccountName: &form.AccountName,
		Phone:       &form.Phone,
		Website:     &form.Website,
		Email:       &form.Email,
		StartDate:   &form.StartDate,
	})
}

func fillEmail(c *Card, to, subject string) {
	c.EditEmail(EmailPatch{ToAddress: &to, Subject: &subject})
}

func TestSubmitAccountUpdateSuccess(t *testing.T) {
	accounts := &fakeAccounts{}
	observer := &recordingObserver{}
	c := New("card-1", "001", Deps{Accounts: accounts, Observer: observer})
	fillAccount(c, validAccountForm())

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Succeeded(MsgAccountUpdated), st)
	assert.Equal(t, "success", c.AccountStatus().Class())
	require.Equal(t, 1, accounts.callCount())
	assert.Equal(t, AccountUpdate{
		AccountID:   "001",
		AccountName: "Acme Corp",
		Phone:       "(555) 123-4567",
		Website:     "https://acme.example",
		Email:       "a.b@c.co",
		StartDate:   time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC),
	}, accounts.calls[0])
	assert.Equal(t, []Outcome{OutcomeSuccess}, observer.outcomes)
}

func TestSubmitAccountUpdateValidationFailureSkipsRemote(t *testing.T) {
	accounts := &fakeAccounts{}
	c := New("card-1", "001", Deps{Accounts: accounts})
	form := validAccountForm()
	form.StartDate = "2024-06-15"
	fillAccount(c, form)

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Failed(MsgStartDate), st)
	assert.Equal(t, "error", c.AccountStatus().Class())
	assert.Zero(t, accounts.callCount())
}

func TestSubmitAccountUpdateRemoteFailure(t *testing.T) {
	accounts := &fakeAccounts{err: Failure("not_found", "Account not found.", nil)}
	c := New("card-1", "001", Deps{Accounts: accounts})
	fillAccount(c, validAccountForm())

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed("Account not found."), st)
}

func TestSubmitAccountUpdateMalformedFailure(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("connection reset")}
	c := New("card-1", "001", Deps{Accounts: accounts})
	fillAccount(c, validAccountForm())

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed(MsgUnexpectedFailure), st)
}

func TestSubmitAccountUpdateWithoutUpdater(t *testing.T) {
	c := New("card-1", "001", Deps{})
	fillAccount(c, validAccountForm())

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed(MsgUnexpectedFailure), st)
}

func TestSubmitAccountUpdateResetsStatusBeforeCall(t *testing.T) {
	accounts := &fakeAccounts{}
	c := New("card-1", "001", Deps{Accounts: accounts})
	form := validAccountForm()
	form.Phone = "bad"
	fillAccount(c, form)

	st, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, st.Kind)

	var during Status
	accounts.during = func() { during = c.AccountStatus() }
	fillAccount(c, validAccountForm())

	st, err = c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle(), during)
	assert.Equal(t, StatusSuccess, st.Kind)
}

func TestSubmitAccountUpdateRejectsConcurrentSubmission(t *testing.T) {
	accounts := &fakeAccounts{release: make(chan struct{}), entered: make(chan struct{})}
	observer := &recordingObserver{}
	c := New("card-1", "001", Deps{Accounts: accounts, Observer: observer})
	fillAccount(c, validAccountForm())

	done := make(chan Status, 1)
	go func() {
		st, _ := c.SubmitAccountUpdate(context.Background())
		done <- st
	}()
	<-accounts.entered

	st, err := c.SubmitAccountUpdate(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, Idle(), st)
	assert.Equal(t, 1, accounts.callCount())

	close(accounts.release)
	assert.Equal(t, Succeeded(MsgAccountUpdated), <-done)

	// The guard is released once the first submission ends.
	accounts.release = nil
	accounts.entered = nil
	_, err = c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, accounts.callCount())
	assert.Contains(t, observer.outcomes, OutcomeBusy)
}

type failingGuard struct{}

func (failingGuard) TryAcquire(context.Context, string) (func(), bool, error) {
	return nil, false, errors.New("redis down")
}

func TestSubmitGuardErrorIsReturned(t *testing.T) {
	accounts := &fakeAccounts{}
	c := New("card-1", "001", Deps{Accounts: accounts, Guard: failingGuard{}})
	fillAccount(c, validAccountForm())

	_, err := c.SubmitAccountUpdate(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubmissionInFlight)
	assert.Zero(t, accounts.callCount())
}

func TestSubmitEmailWithDocuments(t *testing.T) {
	mailer := &fakeMailer{}
	c := New("card-1", "001", Deps{Mailer: mailer})
	fillEmail(c, "ops@example.com", "Contracts")
	c.ToggleDocumentSelection("D2", true)
	c.ToggleDocumentSelection("D1", true)
	c.ToggleDocumentSelection("D3", true)
	c.ToggleDocumentSelection("D3", false)

	st, err := c.SubmitEmailWithDocuments(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Succeeded(MsgEmailSent), st)
	require.Len(t, mailer.calls, 1)
	assert.Equal(t, EmailRequest{
		AccountID:   "001",
		ToAddress:   "ops@example.com",
		Subject:     "Contracts",
		DocumentIDs: []string{"D1", "D2"},
	}, mailer.calls[0])
}

func TestSubmitEmailWithoutDocumentsIsAllowed(t *testing.T) {
	mailer := &fakeMailer{}
	c := New("card-1", "001", Deps{Mailer: mailer})
	fillEmail(c, "ops@example.com", "Hello")

	st, err := c.SubmitEmailWithDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st.Kind)
	require.Len(t, mailer.calls, 1)
	assert.Empty(t, mailer.calls[0].DocumentIDs)
}

func TestSubmitEmailValidationFailureSkipsRemote(t *testing.T) {
	mailer := &fakeMailer{}
	c := New("card-1", "001", Deps{Mailer: mailer})
	fillEmail(c, "", "Contracts")

	st, err := c.SubmitEmailWithDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed(MsgEmailForm), st)
	assert.Equal(t, "error", c.EmailStatus().Class())
	assert.Empty(t, mailer.calls)
}

func TestSubmitEmailRemoteFailure(t *testing.T) {
	mailer := &fakeMailer{err: Failure("quota", "Daily email limit reached.", nil)}
	c := New("card-1", "001", Deps{Mailer: mailer})
	fillEmail(c, "ops@example.com", "Contracts")

	st, err := c.SubmitEmailWithDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed("Daily email limit reached."), st)
}

func TestFormsHaveIndependentStatus(t *testing.T) {
	c := New("card-1", "001", Deps{Accounts: &fakeAccounts{}, Mailer: &fakeMailer{}})
	fillAccount(c, validAccountForm())

	_, err := c.SubmitAccountUpdate(context.Background())
	require.NoError(t, err)
	_, err = c.SubmitEmailWithDocuments(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, c.AccountStatus().Kind)
	assert.Equal(t, Failed(MsgEmailForm), c.EmailStatus())
}

func TestLoadDocumentsOnce(t *testing.T) {
	source := &fakeDocuments{docs: []Document{{ID: "D1", Name: "Contract.pdf"}}}
	c := New("card-1", "001", Deps{Documents: source})

	docs, err := c.LoadDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = c.LoadDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, source.calls)
	assert.True(t, c.HasDocument("D1"))
	assert.False(t, c.HasDocument("D2"))
}

func TestLoadDocumentsError(t *testing.T) {
	source := &fakeDocuments{err: errors.New("db down")}
	c := New("card-1", "001", Deps{Documents: source})

	_, err := c.LoadDocuments(context.Background())
	require.Error(t, err)
	assert.False(t, c.Snapshot().DocumentsLoaded)
}

func TestSnapshotRestore(t *testing.T) {
	c := New("card-1", "001", Deps{Documents: &fakeDocuments{docs: []Document{{ID: "D1"}}}})
	_, err := c.LoadDocuments(context.Background())
	require.NoError(t, err)
	fillAccount(c, validAccountForm())
	fillEmail(c, "ops@example.com", "Hi")
	c.ToggleDocumentSelection("D1", true)

	snap := c.Snapshot()
	restored := Restore(snap, Deps{})

	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, "card-1", restored.ID())

	// Snapshots do not share the selection with the card.
	restored.ToggleDocumentSelection("D1", false)
	assert.True(t, snap.Selection.Contains("D1"))
}
