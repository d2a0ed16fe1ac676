package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/flexcard/internal/card"
)

// Messages returned to the card when the backend rejects a request.
const (
	MsgAccountNotFound = "Account not found."
	MsgEmailTaken      = "Email is already used by another account."
	MsgUnknownDocument = "One or more selected documents no longer exist."
)

const documentLoadTimeout = 10 * time.Second

// Service implements the account update capability and the document source.
type Service struct {
	repo            Repository
	documentBaseURL string
	loads           singleflight.Group
}

// NewService constructs a Service. documentBaseURL prefixes document links.
func NewService(repo Repository, documentBaseURL string) *Service {
	return &Service{repo: repo, documentBaseURL: strings.TrimRight(documentBaseURL, "/")}
}

// UpdateAccountRecord writes the card's account form to the account row.
func (s *Service) UpdateAccountRecord(ctx context.Context, update card.AccountUpdate) (card.AccountUpdateResult, error) {
	if update.AccountID == "" {
		return card.AccountUpdateResult{}, card.Failure("not_found", MsgAccountNotFound, ErrNotFound)
	}
	var updatedAt time.Time
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, update.AccountID)
		if err != nil {
			return err
		}
		existing.Name = update.AccountName
		existing.Phone = optional(update.Phone)
		existing.Website = optional(update.Website)
		existing.Email = optional(update.Email)
		startDate := update.StartDate
		existing.StartDate = &startDate
		updatedAt, err = repo.UpdateInfo(ctx, *existing)
		return err
	})
	switch {
	case err == nil:
		return card.AccountUpdateResult{AccountID: update.AccountID, UpdatedAt: updatedAt}, nil
	case errors.Is(err, ErrNotFound):
		return card.AccountUpdateResult{}, card.Failure("not_found", MsgAccountNotFound, err)
	case errors.Is(err, ErrDuplicateEmail):
		return card.AccountUpdateResult{}, card.Failure("duplicate_email", MsgEmailTaken, err)
	default:
		return card.AccountUpdateResult{}, fmt.Errorf("accounts: update %s: %w", update.AccountID, err)
	}
}

// ListDocuments returns the account's documents. Concurrent loads of the
// same account share one query.
func (s *Service) ListDocuments(ctx context.Context, accountID string) ([]card.Document, error) {
	v, err, _ := s.loads.Do(accountID, func() (interface{}, error) {
		// Shared by every caller in the flight, so no single caller's
		// cancellation may end it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), documentLoadTimeout)
		defer cancel()
		docs, err := s.repo.ListDocuments(loadCtx, accountID)
		if err != nil {
			return nil, err
		}
		return s.toCardDocuments(docs), nil
	})
	if err != nil {
		return nil, fmt.Errorf("accounts: list documents %s: %w", accountID, err)
	}
	shared := v.([]card.Document)
	return append([]card.Document(nil), shared...), nil
}

// Account returns one account.
func (s *Service) Account(ctx context.Context, id string) (*Account, error) {
	return s.repo.Get(ctx, id)
}

// DocumentsForEmail resolves the ids chosen on a card. Every id must belong
// to the account.
func (s *Service) DocumentsForEmail(ctx context.Context, accountID string, ids []string) ([]card.Document, error) {
	docs, err := s.repo.DocumentsByIDs(ctx, accountID, ids)
	if err != nil {
		return nil, fmt.Errorf("accounts: resolve documents: %w", err)
	}
	if len(docs) != len(ids) {
		return nil, card.Failure("unknown_document", MsgUnknownDocument, ErrNotFound)
	}
	return s.toCardDocuments(docs), nil
}

// EmailSent reports whether the task was already delivered.
func (s *Service) EmailSent(ctx context.Context, taskID string) (bool, error) {
	return s.repo.EmailSent(ctx, taskID)
}

// RecordEmail stores a delivered email.
func (s *Service) RecordEmail(ctx context.Context, sent SentEmail) error {
	return s.repo.RecordEmail(ctx, sent)
}

func (s *Service) toCardDocuments(docs []Document) []card.Document {
	out := make([]card.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, card.Document{
			ID:          d.ID,
			Name:        d.Name,
			ContentType: d.ContentType,
			Size:        d.SizeBytes,
			URL:         s.documentURL(d.ID),
			CreatedAt:   d.CreatedAt,
		})
	}
	return out
}

func (s *Service) documentURL(id string) string {
	if s.documentBaseURL == "" {
		return ""
	}
	return s.documentBaseURL + "/" + url.PathEscape(id)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
