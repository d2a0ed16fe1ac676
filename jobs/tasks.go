package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/flexcard/internal/card"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSendDocuments delivers the documents chosen on a card by email.
	TaskSendDocuments = "card:send_documents"
)

// SendDocumentsPayload describes a document email.
type SendDocumentsPayload struct {
	AccountID   string   `json:"account_id"`
	To          string   `json:"to"`
	Subject     string   `json:"subject"`
	DocumentIDs []string `json:"document_ids"`
}

// NewSendDocumentsTask constructs an Asynq task.
func NewSendDocumentsTask(payload SendDocumentsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendDocuments, data, asynq.MaxRetry(5), asynq.Queue(QueueDefault)), nil
}

// Enqueuer is the subset of asynq.Client the mailer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Mailer implements card.DocumentMailer by queueing the email for the worker.
type Mailer struct {
	queue Enqueuer
}

// NewMailer constructs a Mailer.
func NewMailer(queue Enqueuer) *Mailer {
	return &Mailer{queue: queue}
}

// SendDocumentsByEmail queues the email. The task id is returned as the
// message id.
func (m *Mailer) SendDocumentsByEmail(ctx context.Context, req card.EmailRequest) (card.EmailSendResult, error) {
	task, err := NewSendDocumentsTask(SendDocumentsPayload{
		AccountID:   req.AccountID,
		To:          req.ToAddress,
		Subject:     req.Subject,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return card.EmailSendResult{}, fmt.Errorf("jobs: build send task: %w", err)
	}
	info, err := m.queue.EnqueueContext(ctx, task)
	if err != nil {
		return card.EmailSendResult{}, fmt.Errorf("jobs: enqueue send task: %w", err)
	}
	return card.EmailSendResult{MessageID: info.ID}, nil
}
