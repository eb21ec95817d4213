package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	"github.com/noah-isme/gin-admin-kit/pkg/jobs"
)

const auditJobType = "audit_log"

// AuditWriter persists audit entries.
type AuditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditConfig sizes the audit worker pool.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AuditService writes audit entries asynchronously through a job queue.
// Entries are dropped with a warning when the queue is full.
type AuditService struct {
	writer AuditWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService. Start must be called before
// entries are accepted.
func NewAuditService(writer AuditWriter, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{writer: writer, logger: logger}
	svc.queue = jobs.NewQueue("audit", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes buffered entries and stops the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record implements AuditRecorder.
func (s *AuditService) Record(_ context.Context, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry}); err != nil {
		s.logger.Warn("audit entry dropped",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

// ObserveAdmin implements admin.Observer. Only successful actions are recorded.
func (s *AuditService) ObserveAdmin(ctx context.Context, ev admin.Event) {
	if ev.Err != nil {
		return
	}
	entry := models.AuditLog{
		Action:    strings.ToUpper(ev.Action),
		Resource:  "admin",
		IPAddress: ev.ClientIP,
	}
	if ev.Resource != "" {
		entry.Resource = ev.Resource
	}
	if ev.Principal != nil {
		id := ev.Principal.ID
		entry.UserID = &id
	}
	if ev.RecordID != "" {
		id := ev.RecordID
		entry.ResourceID = &id
	}
	if ev.Username != "" {
		if payload, err := json.Marshal(map[string]string{"username": ev.Username}); err == nil {
			entry.NewValues = payload
		}
	}
	s.Record(ctx, entry)
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	if s.writer == nil {
		return errors.New("audit writer not configured")
	}
	return s.writer.Create(ctx, &entry)
}
