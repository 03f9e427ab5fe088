package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/repository"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

const (
	menuCacheKey   = "menus:active"
	menuVersionKey = "menus:version"
)

type menuRepository interface {
	ListActive(ctx context.Context) ([]models.MenuItem, error)
	List(ctx context.Context) ([]models.MenuItem, error)
	FindByID(ctx context.Context, id string) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

// MenuService resolves visible navigation and manages menu items.
type MenuService struct {
	repo      menuRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewMenuService constructs a MenuService. cache may be nil.
func NewMenuService(repo menuRepository, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *MenuService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &MenuService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Visible returns the active items perms may see, in display order, with the
// current menu version. The bool reports whether the item list came from cache.
func (s *MenuService) Visible(ctx context.Context, perms models.Permissions) (*models.VisibleMenus, bool, error) {
	active, cacheHit, err := s.active(ctx)
	if err != nil {
		return nil, false, err
	}

	items := make([]models.MenuItem, 0, len(active))
	for _, item := range active {
		if perms.CanSeeMenu(item.Name) {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OrderIndex != items[j].OrderIndex {
			return items[i].OrderIndex < items[j].OrderIndex
		}
		return items[i].Name < items[j].Name
	})
	return &models.VisibleMenus{Version: s.Version(ctx), Items: items}, cacheHit, nil
}

// Version returns the menu schema version, 0 when no counter is available.
func (s *MenuService) Version(ctx context.Context) int64 {
	return s.cache.Version(ctx, menuVersionKey)
}

// BumpVersion drops the cached menu list and advances the menu schema version.
func (s *MenuService) BumpVersion(ctx context.Context) int64 {
	s.cache.Invalidate(ctx, menuCacheKey)
	return s.cache.Bump(ctx, menuVersionKey)
}

// List returns every menu item.
func (s *MenuService) List(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list menu items")
	}
	return items, nil
}

// Get returns a single menu item.
func (s *MenuService) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "menu item not found")
		}
		return nil, appErrors.Internal(err, "failed to load menu item")
	}
	return item, nil
}

// Create adds a menu item.
func (s *MenuService) Create(ctx context.Context, actorID string, req models.CreateMenuItemRequest, meta models.RequestMeta) (*models.MenuItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid menu payload")
	}

	item := &models.MenuItem{
		Name:       strings.TrimSpace(req.Name),
		Label:      strings.TrimSpace(req.Label),
		Icon:       req.Icon,
		Path:       req.Path,
		ParentID:   req.ParentID,
		OrderIndex: req.OrderIndex,
		IsActive:   true,
		Roles:      normalizeRoleNames(req.Roles),
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "menu name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create menu item")
	}

	s.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionMenuCreate, "menu_items", item.ID,
		fmt.Sprintf("menu %s created", item.Name), meta))
	return item, nil
}

// Update changes a menu item.
func (s *MenuService) Update(ctx context.Context, actorID, id string, req models.UpdateMenuItemRequest, meta models.RequestMeta) (*models.MenuItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid menu payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Label != nil {
		item.Label = strings.TrimSpace(*req.Label)
	}
	if req.Icon != nil {
		item.Icon = *req.Icon
	}
	if req.Path != nil {
		item.Path = *req.Path
	}
	if req.ParentID != nil {
		if *req.ParentID == item.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "menu item cannot be its own parent")
		}
		item.ParentID = req.ParentID
	}
	if req.OrderIndex != nil {
		item.OrderIndex = *req.OrderIndex
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.Roles != nil {
		item.Roles = normalizeRoleNames(*req.Roles)
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "menu item not found")
		}
		return nil, appErrors.Internal(err, "failed to update menu item")
	}

	s.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionMenuUpdate, "menu_items", item.ID,
		fmt.Sprintf("menu %s updated", item.Name), meta))
	return item, nil
}

// Delete removes a menu item.
func (s *MenuService) Delete(ctx context.Context, actorID, id string, meta models.RequestMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "menu item not found")
		}
		return appErrors.Internal(err, "failed to delete menu item")
	}

	s.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionMenuDelete, "menu_items", id, "menu item deleted", meta))
	return nil
}

func (s *MenuService) active(ctx context.Context) ([]models.MenuItem, bool, error) {
	var cached []models.MenuItem
	if s.cache.Get(ctx, menuCacheKey, &cached) {
		return cached, true, nil
	}

	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load menu items")
	}
	s.cache.Set(ctx, menuCacheKey, items, s.cacheTTL)
	return items, false, nil
}

func normalizeRoleNames(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
