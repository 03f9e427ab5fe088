package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// Audit records mutating requests that completed below 400. Reads are skipped.
func Audit(recorder auditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			return
		}

		entry := models.AuditLog{
			Action:      action,
			Resource:    resource,
			Description: fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
		}
		if user := CurrentUser(c); user != nil {
			id := user.ID
			entry.UserID = &id
		}
		recorder.Record(c.Request.Context(), entry)
	}
}
