package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// principal returns the session principal or writes a 401 and returns nil.
func principal(c *gin.Context) *models.SessionUser {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return user
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

// paging reads page and page_size. Malformed values are left zero for the service to default.
func paging(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("page_size"))
	return page, size
}
