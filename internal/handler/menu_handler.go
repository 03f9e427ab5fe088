package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/service"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// MenuHandler serves navigation menus.
type MenuHandler struct {
	service *service.MenuService
}

// NewMenuHandler creates a MenuHandler.
func NewMenuHandler(svc *service.MenuService) *MenuHandler {
	return &MenuHandler{service: svc}
}

// Visible godoc
// @Summary Visible menus
// @Description Active menu items the current principal may see, with the menu schema version
// @Tags Menus
// @Produce json
// @Success 200 {object} response.Envelope{data=models.VisibleMenus}
// @Failure 401 {object} response.Envelope
// @Router /menus/visible [get]
func (h *MenuHandler) Visible(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}

	menus, cacheHit, err := h.service.Visible(c.Request.Context(), user.Permissions)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, menus, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List menu items
// @Tags Menus
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /menus [get]
func (h *MenuHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get menu item
// @Tags Menus
// @Produce json
// @Param id path string true "Menu item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [get]
func (h *MenuHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create menu item
// @Tags Menus
// @Accept json
// @Produce json
// @Param payload body models.CreateMenuItemRequest true "Menu item"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /menus [post]
func (h *MenuHandler) Create(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}
	var req models.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	item, err := h.service.Create(c.Request.Context(), user.ID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update menu item
// @Tags Menus
// @Accept json
// @Produce json
// @Param id path string true "Menu item ID"
// @Param payload body models.UpdateMenuItemRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [put]
func (h *MenuHandler) Update(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}
	var req models.UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	item, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete menu item
// @Tags Menus
// @Param id path string true "Menu item ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [delete]
func (h *MenuHandler) Delete(c *gin.Context) {
	user := principal(c)
	if user == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
