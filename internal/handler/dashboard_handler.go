package handler

import (
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// DashboardHandler serves the dashboard single-page app. Unknown paths fall
// back to index.html so client-side routes resolve.
type DashboardHandler struct {
	dir string
}

// NewDashboardHandler creates a DashboardHandler rooted at dir.
func NewDashboardHandler(dir string) *DashboardHandler {
	return &DashboardHandler{dir: dir}
}

// Serve handles GET /dashboard/*path.
func (h *DashboardHandler) Serve(c *gin.Context) {
	rel := path.Clean("/" + c.Param("path"))
	if rel != "/" {
		candidate := filepath.Join(h.dir, filepath.FromSlash(rel))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "dashboard bundle not found"))
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.File(index)
}
