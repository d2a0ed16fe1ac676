package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/flexcard/internal/accounts"
	"github.com/odyssey-erp/flexcard/internal/card"
	jobmetrics "github.com/odyssey-erp/flexcard/internal/jobs"
	"github.com/odyssey-erp/flexcard/internal/platform/mail"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

var documentsBody = template.Must(template.New("documents").Parse(`Hello,

{{if .AccountName}}The following documents for {{.AccountName}} were shared with you:{{else}}The following documents were shared with you:{{end}}
{{range .Documents}}
- {{.Name}}{{if .URL}} <{{.URL}}>{{end}}{{end}}
{{if not .Documents}}
(no documents were selected)
{{end}}
`))

// DocumentBackend resolves accounts and documents for the send job.
type DocumentBackend interface {
	Account(ctx context.Context, id string) (*accounts.Account, error)
	DocumentsForEmail(ctx context.Context, accountID string, ids []string) ([]card.Document, error)
	EmailSent(ctx context.Context, taskID string) (bool, error)
	RecordEmail(ctx context.Context, sent accounts.SentEmail) error
}

// SendDocumentsJob delivers queued document emails.
type SendDocumentsJob struct {
	Backend DocumentBackend
	Sender  mail.Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSendDocumentsJob wires dependencies for the send handler.
func NewSendDocumentsJob(backend DocumentBackend, sender mail.Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendDocumentsJob {
	return &SendDocumentsJob{
		Backend: backend,
		Sender:  sender,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSendDocuments tasks.
func (j *SendDocumentsJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Backend == nil || j.Sender == nil {
		return errors.New("send documents: handler not configured")
	}
	var payload SendDocumentsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("send documents: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskSendDocuments)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	taskID, _ := asynq.GetTaskID(ctx)
	logger := j.logger().With(slog.String("task_id", taskID), slog.String("account_id", payload.AccountID))

	if taskID != "" {
		sent, err := j.Backend.EmailSent(ctx, taskID)
		if err != nil {
			return err
		}
		if sent {
			logger.Info("document email already delivered")
			return nil
		}
	}

	var (
		account *accounts.Account
		docs    []card.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = j.Backend.Account(gctx, payload.AccountID)
		if errors.Is(err, accounts.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		docs, err = j.Backend.DocumentsForEmail(gctx, payload.AccountID, payload.DocumentIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		var failure *card.RemoteFailure
		if errors.As(err, &failure) {
			logger.Warn("document email dropped", slog.Any("error", err))
			return fmt.Errorf("send documents: %v: %w", err, asynq.SkipRetry)
		}
		logger.Error("resolve document email", slog.Any("error", err))
		return err
	}

	body, err := renderDocumentsBody(account, docs)
	if err != nil {
		return fmt.Errorf("send documents: render: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.Sender.Send(ctx, mail.Message{To: payload.To, Subject: payload.Subject, Body: body}); err != nil {
		logger.Error("deliver document email", slog.Any("error", err))
		return err
	}
	j.metrics().EmailDelivered(len(docs))

	if taskID != "" {
		err := j.Backend.RecordEmail(ctx, accounts.SentEmail{
			AccountID:   payload.AccountID,
			TaskID:      taskID,
			ToAddress:   payload.To,
			Subject:     payload.Subject,
			DocumentIDs: payload.DocumentIDs,
			SentAt:      j.now(),
		})
		if err != nil {
			// Already delivered; a retry would send it twice.
			logger.Warn("record document email", slog.Any("error", err))
		}
	}
	logger.Info("document email delivered", slog.Int("documents", len(docs)))
	return nil
}

func renderDocumentsBody(account *accounts.Account, docs []card.Document) (string, error) {
	data := struct {
		AccountName string
		Documents   []card.Document
	}{Documents: docs}
	if account != nil {
		data.AccountName = account.Name
	}
	var buf bytes.Buffer
	if err := documentsBody.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (j *SendDocumentsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SendDocumentsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SendDocumentsJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
