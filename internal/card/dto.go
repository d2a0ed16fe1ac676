package card

import "time"

// Snapshot is the stored state of a card.
type Snapshot struct {
	ID              string             `json:"id"`
	Account         AccountForm        `json:"account"`
	Email           EmailForm          `json:"email"`
	Selection       *DocumentSelection `json:"selected_document_ids"`
	Documents       []Document         `json:"documents"`
	DocumentsLoaded bool               `json:"documents_loaded"`
	AccountStatus   Status             `json:"account_status"`
	EmailStatus     Status             `json:"email_status"`
	CreatedAt       time.Time          `json:"created_at"`
}

// AccountPatch carries the account fields the user changed.
type AccountPatch struct {
	AccountName *string `json:"account_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Email       *string `json:"email,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
}

func (p AccountPatch) apply(form *AccountForm) {
	if p.AccountName != nil {
		form.AccountName = *p.AccountName
	}
	if p.Phone != nil {
		form.Phone = *p.Phone
	}
	if p.Website != nil {
		form.Website = *p.Website
	}
	if p.Email != nil {
		form.Email = *p.Email
	}
	if p.StartDate != nil {
		form.StartDate = *p.StartDate
	}
}

// EmailPatch carries the email fields the user changed.
type EmailPatch struct {
	ToAddress *string `json:"to_address,omitempty"`
	Subject   *string `json:"subject,omitempty"`
}

func (p EmailPatch) apply(form *EmailForm) {
	if p.ToAddress != nil {
		form.ToAddress = *p.ToAddress
	}
	if p.Subject != nil {
		form.Subject = *p.Subject
	}
}

// CreateCardRequest opens a card for an account.
type CreateCardRequest struct {
	AccountID string `json:"account_id" validate:"required,max=64"`
}

// ToggleDocumentRequest selects or deselects one document.
type ToggleDocumentRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// SubmitResponse is returned by the submit endpoints.
type SubmitResponse struct {
	Status Status   `json:"status"`
	Card   Snapshot `json:"card"`
}
