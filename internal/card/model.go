package card

import "time"

// AccountForm is the account half of the card as typed by the user.
type AccountForm struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name" validate:"required"`
	Phone       string `json:"phone" validate:"required,cardphone"`
	Website     string `json:"website"`
	Email       string `json:"email" validate:"required,cardemail"`
	StartDate   string `json:"start_date" validate:"required,weekday"`
}

// EmailForm is the send-documents half of the card. The selected
// documents live in DocumentSelection.
type EmailForm struct {
	ToAddress string `json:"to_address" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
}

// Document is an entry of the account's document list.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// AccountUpdate is the payload handed to the account update capability.
type AccountUpdate struct {
	AccountID   string
	AccountName string
	Phone       string
	Website     string
	Email       string
	StartDate   time.Time
}

// AccountUpdateResult is returned by a fulfilled account update.
type AccountUpdateResult struct {
	AccountID string
	UpdatedAt time.Time
}

// EmailRequest is the payload handed to the send capability.
type EmailRequest struct {
	AccountID   string
	ToAddress   string
	Subject     string
	DocumentIDs []string
}

// EmailSendResult is returned by a fulfilled send.
type EmailSendResult struct {
	MessageID string
}
