package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/export"
	"github.com/iqrolife/iqrolife-api/pkg/storage"
)

var auditExportHeaders = []string{"created_at", "action", "resource", "resource_id", "user_id", "description", "ip_address", "user_agent"}

type auditExportSource interface {
	ListForExport(ctx context.Context, filter models.AuditFilter, limit int) ([]models.AuditLog, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(format export.Format, data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	MaxRows   int
}

// ExportService renders audit log exports, stores them and hands out signed download links.
type ExportService struct {
	source    auditExportSource
	storage   fileStorage
	renderer  datasetRenderer
	signer    *storage.SignedURLSigner
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(source auditExportSource, files fileStorage, signer *storage.SignedURLSigner, renderer datasetRenderer, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		source:    source,
		storage:   files,
		renderer:  renderer,
		signer:    signer,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// ExportAuditLogs renders the matching audit entries and returns a signed download link.
func (s *ExportService) ExportAuditLogs(ctx context.Context, actorID string, req models.AuditExportRequest, meta models.RequestMeta) (*models.AuditExport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	filter := models.AuditFilter{Action: req.Action, UserID: req.UserID, From: req.From, To: req.To}
	logs, err := s.source.ListForExport(ctx, filter, s.cfg.MaxRows)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load audit logs")
	}

	payload, err := s.renderer.Render(format, auditDataset(logs), "Audit log")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	id := uuid.NewString()
	name := path.Join("audit", fmt.Sprintf("audit_%s_%s%s", time.Now().UTC().Format("20060102_150405"), id[:8], format.Extension()))
	relPath, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export")
	}

	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionExport, "audit_logs", id,
		fmt.Sprintf("exported %d audit entries as %s", len(logs), format), meta))

	return &models.AuditExport{
		ID:        id,
		Format:    string(format),
		Rows:      len(logs),
		URL:       fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download is an opened export file.
type Download struct {
	File        *os.File
	Name        string
	ContentType string
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*Download, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Internal(err, "failed to open export")
	}

	contentType := export.FormatCSV.ContentType()
	if strings.HasSuffix(relPath, export.FormatPDF.Extension()) {
		contentType = export.FormatPDF.ContentType()
	}
	return &Download{File: file, Name: path.Base(relPath), ContentType: contentType}, nil
}

// Cleanup removes exports whose download links have expired.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.signer.TTL())
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func auditDataset(logs []models.AuditLog) export.Dataset {
	rows := make([]map[string]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, map[string]string{
			"created_at":  l.CreatedAt.UTC().Format(time.RFC3339),
			"action":      l.Action,
			"resource":    l.Resource,
			"resource_id": deref(l.ResourceID),
			"user_id":     deref(l.UserID),
			"description": l.Description,
			"ip_address":  l.IPAddress,
			"user_agent":  l.UserAgent,
		})
	}
	return export.Dataset{Headers: auditExportHeaders, Rows: rows}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
