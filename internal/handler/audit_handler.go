package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/service"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
}

type auditExporter interface {
	ExportAuditLogs(ctx context.Context, actorID string, req models.AuditExportRequest, meta models.RequestMeta) (*models.AuditExport, error)
	Open(token string) (*service.Download, error)
}

// AuditHandler exposes the audit trail and its exports.
type AuditHandler struct {
	audit   auditLister
	exports auditExporter
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit auditLister, exports auditExporter) *AuditHandler {
	return &AuditHandler{audit: audit, exports: exports}
}

// List godoc
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Param action query string false "Action"
// @Param user_id query string false "Actor ID"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{Action: c.Query("action"), UserID: c.Query("user_id")}
	filter.Page, filter.PageSize = paging(c)
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	logs, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Export godoc
// @Summary Export audit logs
// @Description Render matching audit logs to CSV or PDF and return a signed download link
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body models.AuditExportRequest true "Export filter"
// @Success 201 {object} response.Envelope{data=models.AuditExport}
// @Failure 400 {object} response.Envelope
// @Router /audit-logs/exports [post]
func (h *AuditHandler) Export(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}
	var req models.AuditExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	result, err := h.exports.ExportAuditLogs(c.Request.Context(), user.ID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download export via signed token
// @Tags Audit
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *AuditHandler) Download(c *gin.Context) {
	download, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, nil)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be an RFC3339 timestamp", key))
	}
	return &t, nil
}
