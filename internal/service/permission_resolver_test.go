package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

func roleRow(name, doc string) *models.Role {
	r := &models.Role{ID: "role-1", Name: name}
	if doc != "" {
		r.Permissions = models.PermissionsDocument(doc)
	}
	return r
}

var staffMenus = []string{"calon-murid", "formulir", "formulir-list", "home", "portofolio"}

func TestResolvePermissionsUnknownLabelWithoutRowIsEmpty(t *testing.T) {
	p := ResolvePermissions("guest", nil)

	require.NotNil(t, p.Menus)
	assert.Empty(t, p.Menus)
	for _, flag := range models.PermissionFlags {
		assert.False(t, p.Flag(flag), string(flag))
	}
}

func TestResolvePermissionsKnownLabelWithoutRowUsesDefaults(t *testing.T) {
	p := ResolvePermissions("Staff", nil)

	assert.Equal(t, staffMenus, p.Menus)
	assert.False(t, p.CanAccessAll)
	assert.True(t, p.CanManageStudents)
	assert.True(t, p.CanViewPortfolio)
	assert.False(t, p.CanManageUsers)

	super := ResolvePermissions("superadmin", nil)
	assert.True(t, super.CanAccessAll)
	assert.Len(t, super.Menus, len(models.MenuIDs))

	admin := ResolvePermissions("admin", nil)
	assert.False(t, admin.CanAccessAll)
	assert.True(t, admin.CanManageMenu)
}

func TestResolvePermissionsNullOrMalformedDocument(t *testing.T) {
	for _, doc := range []string{"", "null", "[]", `"x"`, "{broken"} {
		p := ResolvePermissions("guest", roleRow("guest", doc))
		assert.Equal(t, []string{}, p.Menus, doc)
		assert.False(t, p.CanAccessAll, doc)

		staff := ResolvePermissions("staff", roleRow("staff", doc))
		assert.Equal(t, staffMenus, staff.Menus, doc)
	}
}

func TestResolvePermissionsMissingMenusFallsBackPerRole(t *testing.T) {
	p := ResolvePermissions("staff", roleRow("staff", `{"canManageForms":true}`))

	assert.Equal(t, staffMenus, p.Menus)
	assert.True(t, p.CanManageForms)
	assert.False(t, p.CanManageStudents, "flags come from the row")

	p = ResolvePermissions("staff", roleRow("staff", `{"menus":"home"}`))
	assert.Equal(t, staffMenus, p.Menus)

	p = ResolvePermissions("editor", roleRow("editor", `{"canManageForms":true}`))
	assert.Equal(t, []string{}, p.Menus)
	assert.True(t, p.CanManageForms)
}

func TestResolvePermissionsUsesRowMenusAsSet(t *testing.T) {
	doc := `{"menus":["users","home","users"," ",7,"roles"],"canManageUsers":true,"canAccessAll":"yes"}`
	p := ResolvePermissions("staff", roleRow("STAFF", doc))

	assert.Equal(t, []string{"home", "roles", "users"}, p.Menus)
	assert.True(t, p.CanManageUsers)
	assert.False(t, p.CanAccessAll, "non-boolean flags are false")

	empty := ResolvePermissions("staff", roleRow("staff", `{"menus":[]}`))
	assert.Equal(t, []string{}, empty.Menus)
}

func TestResolvePermissionsIgnoresMismatchedRow(t *testing.T) {
	p := ResolvePermissions("guest", roleRow("superadmin", `{"canAccessAll":true,"menus":["home"]}`))
	assert.False(t, p.CanAccessAll)
	assert.Empty(t, p.Menus)
}

func TestResolvePermissionsIsIdempotent(t *testing.T) {
	row := roleRow("admin", `{"menus":["roles","home"],"canManageRoles":true}`)
	first := ResolvePermissions("admin", row)
	second := ResolvePermissions("admin", row)
	assert.Equal(t, first, second)

	first.Menus[0] = "mutated"
	again := ResolvePermissions("admin", row)
	assert.Equal(t, second, again)

	d1 := ResolvePermissions("superadmin", nil)
	d1.Menus[0] = "mutated"
	assert.Equal(t, models.MenuHome, models.MenuIDs[0])
}

func TestFallbackPermissions(t *testing.T) {
	p, ok := FallbackPermissions(" ADMIN ")
	assert.True(t, ok)
	assert.True(t, p.CanManageUsers)

	p, ok = FallbackPermissions("nobody")
	assert.False(t, ok)
	assert.Equal(t, []string{}, p.Menus)
}
