package accounts

import "time"

// Account is a row of the accounts table.
type Account struct {
	ID        string
	Name      string
	Phone     *string
	Website   *string
	Email     *string
	StartDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is a row of the account_documents table.
type Document struct {
	ID          string
	AccountID   string
	Name        string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// SentEmail records a delivered document email.
type SentEmail struct {
	AccountID   string
	TaskID      string
	ToAddress   string
	Subject     string
	DocumentIDs []string
	SentAt      time.Time
}
