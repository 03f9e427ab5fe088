package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/storage"
)

type auditSourceStub struct {
	logs       []models.AuditLog
	lastLimit  int
	lastFilter models.AuditFilter
}

func (s *auditSourceStub) ListForExport(ctx context.Context, filter models.AuditFilter, limit int) ([]models.AuditLog, error) {
	s.lastFilter = filter
	s.lastLimit = limit
	return s.logs, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *auditSourceStub, *recordingAudit) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	actor := "user-1"
	source := &auditSourceStub{logs: []models.AuditLog{
		{ID: "a1", UserID: &actor, Action: models.AuditActionLogin, Resource: "auth", Description: "staff logged in", IPAddress: "127.0.0.1", CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
	}}
	audit := &recordingAudit{}
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	svc := NewExportService(source, files, signer, nil, audit, NewValidator(), zap.NewNop(), ExportConfig{APIPrefix: "/api/v1", MaxRows: 50})
	return svc, source, audit
}

func TestExportServiceCSVRoundTrip(t *testing.T) {
	svc, source, audit := newExportServiceForTest(t)

	result, err := svc.ExportAuditLogs(context.Background(), "admin-1", models.AuditExportRequest{Action: "login"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.Equal(t, 50, source.lastLimit)
	assert.Equal(t, "login", source.lastFilter.Action)
	assert.Equal(t, []string{models.AuditActionExport}, audit.actions())

	download, err := svc.Open(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasSuffix(download.Name, ".csv"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "created_at,action,resource")
	assert.Contains(t, string(body), "staff logged in")
}

func TestExportServicePDF(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	result, err := svc.ExportAuditLogs(context.Background(), "admin-1", models.AuditExportRequest{Format: "pdf"}, models.RequestMeta{})
	require.NoError(t, err)

	download, err := svc.Open(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.ContentType)
}

func TestExportServiceRejectsBadInput(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.ExportAuditLogs(context.Background(), "admin-1", models.AuditExportRequest{Format: "xlsx"}, models.RequestMeta{})
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	_, err = svc.Open("not-a-token")
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}
