package service

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

// defaultBundles holds the built-in permission bundle of every known role label.
// It is consulted when a role row is missing or incomplete.
var defaultBundles = map[string]models.Permissions{
	models.RoleSuperAdmin: {
		Menus:              models.MenuIDs,
		CanAccessAll:       true,
		CanManageUsers:     true,
		CanManageRoles:     true,
		CanManageStudents:  true,
		CanManageForms:     true,
		CanManageFormsList: true,
		CanManageSettings:  true,
		CanManageMenu:      true,
		CanViewPortfolio:   true,
	},
	models.RoleAdmin: {
		Menus:              models.MenuIDs,
		CanManageUsers:     true,
		CanManageRoles:     true,
		CanManageStudents:  true,
		CanManageForms:     true,
		CanManageFormsList: true,
		CanManageSettings:  true,
		CanManageMenu:      true,
		CanViewPortfolio:   true,
	},
	models.RoleStaff: {
		Menus: []string{
			models.MenuHome,
			models.MenuCalonMurid,
			models.MenuFormulirList,
			models.MenuFormulir,
			models.MenuPortofolio,
		},
		CanManageStudents:  true,
		CanManageForms:     true,
		CanManageFormsList: true,
		CanViewPortfolio:   true,
	},
}

// ResolvePermissions computes the effective permission bundle for a role label
// and the matching role row (nil when none exists). It is pure: identical
// inputs always yield identical output, and Menus is never nil.
//
// Missing row or unusable permissions document: the built-in bundle for a known
// label, else the empty bundle. Row without a usable menus array: flags from the
// row, menus from the built-in bundle of the label.
func ResolvePermissions(roleLabel string, role *models.Role) models.Permissions {
	label := strings.ToLower(strings.TrimSpace(roleLabel))
	fallback, known := defaultBundles[label]

	if role != nil && !strings.EqualFold(strings.TrimSpace(role.Name), label) {
		role = nil
	}

	var doc map[string]json.RawMessage
	if role == nil || !decodeObject(role.Permissions, &doc) {
		if !known {
			return emptyPermissions()
		}
		return normalize(fallback)
	}

	var perms models.Permissions
	for _, flag := range models.PermissionFlags {
		raw, ok := doc[string(flag)]
		if !ok {
			continue
		}
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			perms.SetFlag(flag, v)
		}
	}

	menus, ok := decodeMenus(doc["menus"])
	if !ok {
		menus = fallback.Menus
	}
	perms.Menus = menus
	return normalize(perms)
}

// FallbackPermissions returns the built-in bundle for a label and whether the label is known.
func FallbackPermissions(roleLabel string) (models.Permissions, bool) {
	p, ok := defaultBundles[strings.ToLower(strings.TrimSpace(roleLabel))]
	if !ok {
		return emptyPermissions(), false
	}
	return normalize(p), true
}

func emptyPermissions() models.Permissions {
	return models.Permissions{Menus: []string{}}
}

func decodeObject(raw []byte, out *map[string]json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Unmarshal(trimmed, out) == nil && *out != nil
}

func decodeMenus(raw json.RawMessage) ([]string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	menus := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			menus = append(menus, s)
		}
	}
	return menus, true
}

// normalize returns a copy with menus trimmed, de-duplicated and sorted.
func normalize(p models.Permissions) models.Permissions {
	seen := make(map[string]struct{}, len(p.Menus))
	menus := make([]string, 0, len(p.Menus))
	for _, m := range p.Menus {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		menus = append(menus, m)
	}
	sort.Strings(menus)
	p.Menus = menus
	return p
}
