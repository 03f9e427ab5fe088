package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iqrolife/iqrolife-api/internal/models"
	"github.com/iqrolife/iqrolife-api/internal/repository"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

type roleRepository interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	FindByID(ctx context.Context, id string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, name string) (int, error)
}

type menuVersionBumper interface {
	BumpVersion(ctx context.Context) int64
}

// RoleService manages role permission bundles.
type RoleService struct {
	repo      roleRepository
	menus     menuVersionBumper
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo roleRepository, menus menuVersionBumper, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &RoleService{repo: repo, menus: menus, audit: audit, validator: validate, logger: logger}
}

// List returns every role.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list roles")
	}
	return roles, nil
}

// Get returns a role by id.
func (s *RoleService) Get(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Internal(err, "failed to load role")
	}
	return role, nil
}

// Preview resolves the effective bundle for a role label, exposing the built-in fallbacks.
func (s *RoleService) Preview(ctx context.Context, label string) (*models.RolePreview, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role label is required")
	}
	role, err := s.repo.FindByName(ctx, label)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load role")
		}
		role = nil
	}
	return &models.RolePreview{
		Label:       label,
		RowFound:    role != nil,
		Permissions: ResolvePermissions(label, role),
	}, nil
}

// Create adds a role. Names are unique case-insensitively.
func (s *RoleService) Create(ctx context.Context, actorID string, req models.CreateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	doc, err := models.NewPermissionsDocument(normalize(req.Permissions))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode permissions")
	}
	role := &models.Role{Name: name, Description: strings.TrimSpace(req.Description), Permissions: doc}
	if err := s.repo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "role name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create role")
	}

	s.menus.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionRoleCreate, "roles", role.ID, fmt.Sprintf("role %s created", role.Name), meta))
	return role, nil
}

// Update changes a role. Renaming a role still assigned to users is refused.
func (s *RoleService) Update(ctx context.Context, actorID, id string, req models.UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "role name is required")
		}
		if !strings.EqualFold(name, role.Name) {
			if err := s.ensureNameFree(ctx, name, role.ID); err != nil {
				return nil, err
			}
			if err := s.ensureUnassigned(ctx, role.Name, "rename"); err != nil {
				return nil, err
			}
		}
		role.Name = name
	}
	if req.Description != nil {
		role.Description = strings.TrimSpace(*req.Description)
	}
	if req.Permissions != nil {
		doc, err := models.NewPermissionsDocument(normalize(*req.Permissions))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to encode permissions")
		}
		role.Permissions = doc
	}

	if err := s.repo.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "role name already exists")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Internal(err, "failed to update role")
	}

	s.menus.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionRoleUpdate, "roles", role.ID, fmt.Sprintf("role %s updated", role.Name), meta))
	return role, nil
}

// Delete removes a role that no user carries.
func (s *RoleService) Delete(ctx context.Context, actorID, id string, meta models.RequestMeta) error {
	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureUnassigned(ctx, role.Name, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return appErrors.Internal(err, "failed to delete role")
	}

	s.menus.BumpVersion(ctx)
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionRoleDelete, "roles", id, fmt.Sprintf("role %s deleted", role.Name), meta))
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Internal(err, "failed to check role name")
	}
	if existing.ID != selfID {
		return appErrors.Clone(appErrors.ErrConflict, "role name already exists")
	}
	return nil
}

func (s *RoleService) ensureUnassigned(ctx context.Context, name, op string) error {
	n, err := s.repo.CountUsers(ctx, name)
	if err != nil {
		return appErrors.Internal(err, "failed to count role users")
	}
	if n > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot %s role assigned to %d users", op, n))
	}
	return nil
}
