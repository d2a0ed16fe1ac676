package card

import "context"

// AccountUpdater persists the account form.
type AccountUpdater interface {
	UpdateAccountRecord(ctx context.Context, update AccountUpdate) (AccountUpdateResult, error)
}

// DocumentMailer sends the selected documents by email.
type DocumentMailer interface {
	SendDocumentsByEmail(ctx context.Context, req EmailRequest) (EmailSendResult, error)
}

// DocumentSource lists the documents of an account.
type DocumentSource interface {
	ListDocuments(ctx context.Context, accountID string) ([]Document, error)
}

// Form names one of the two forms of a card.
type Form string

const (
	FormAccount Form = "account"
	FormEmail   Form = "email"
)

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeValidationError Outcome = "validation_error"
	OutcomeRemoteError     Outcome = "remote_error"
	OutcomeSuccess         Outcome = "success"
	OutcomeBusy            Outcome = "busy"
)

// Observer is notified once per submission attempt.
type Observer interface {
	ObserveSubmission(form Form, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveSubmission(Form, Outcome) {}
