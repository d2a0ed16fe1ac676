package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/flexcard/internal/platform/db"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

const uniqueViolation = "23505"

// Repository is the accounts persistence contract.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id string) (*Account, error)
	GetForUpdate(ctx context.Context, id string) (*Account, error)
	UpdateInfo(ctx context.Context, account Account) (time.Time, error)
	ListDocuments(ctx context.Context, accountID string) ([]Document, error)
	DocumentsByIDs(ctx context.Context, accountID string, ids []string) ([]Document, error)
	EmailSent(ctx context.Context, taskID string) (bool, error)
	RecordEmail(ctx context.Context, sent SentEmail) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const accountColumns = `id, name, phone, website, email, start_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Account, error) {
	return r.scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id string) (*Account, error) {
	return r.scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Phone, &a.Website, &a.Email, &a.StartDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) UpdateInfo(ctx context.Context, account Account) (time.Time, error) {
	const query = `
		UPDATE accounts
		SET name = $2, phone = $3, website = $4, email = $5, start_date = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, query,
		account.ID, account.Name, account.Phone, account.Website, account.Email, account.StartDate,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return time.Time{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, pgErr.ConstraintName)
		}
		return time.Time{}, err
	}
	return updatedAt, nil
}

const documentColumns = `id, account_id, name, content_type, size_bytes, created_at`

func (r *repository) ListDocuments(ctx context.Context, accountID string) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM account_documents WHERE account_id = $1 ORDER BY name, id`, accountID)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func (r *repository) DocumentsByIDs(ctx context.Context, accountID string, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM account_documents WHERE account_id = $1 AND id = ANY($2) ORDER BY name, id`,
		accountID, ids)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]Document, error) {
	defer rows.Close()
	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.AccountID, &d.Name, &d.ContentType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *repository) EmailSent(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM document_emails WHERE task_id = $1)`, taskID).Scan(&exists)
	return exists, err
}

func (r *repository) RecordEmail(ctx context.Context, sent SentEmail) error {
	if sent.DocumentIDs == nil {
		sent.DocumentIDs = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO document_emails (account_id, task_id, to_address, subject, document_ids, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (task_id) DO NOTHING`,
		sent.AccountID, sent.TaskID, sent.ToAddress, sent.Subject, sent.DocumentIDs, sent.SentAt)
	return err
}
