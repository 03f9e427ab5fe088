package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// auditRecorder is the fire-and-forget side of the audit trail used by other services.
type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditConfig sizes the asynchronous writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AuditService writes audit entries through a background queue and lists them.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs an AuditService. Call Start before recording.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, cfg AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the writer workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the writer workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Shutdown writes the entries still queued, giving up when ctx ends.
func (s *AuditService) Shutdown(ctx context.Context) {
	s.queue.Shutdown(ctx)
}

// Record queues entry for persistence without blocking. Failures are logged and counted only.
func (s *AuditService) Record(_ context.Context, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.queue.TryEnqueue(jobs.Job{Type: auditJobType, Payload: entry}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("failed to queue audit log",
			zap.String("action", entry.Action), zap.String("resource", entry.Resource), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("persist audit log %s: %w", entry.ID, err)
	}
	return nil
}

// List returns a page of audit entries.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list audit logs")
	}
	return logs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func auditEntry(actorID, action, resource, resourceID, description string, meta models.RequestMeta) models.AuditLog {
	entry := models.AuditLog{
		Action:      action,
		Resource:    resource,
		Description: description,
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}
