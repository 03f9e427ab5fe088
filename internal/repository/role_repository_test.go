package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

var roleRowColumns = []string{"id", "name", "description", "permissions", "created_at", "updated_at"}

func TestRoleFindByNameIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM roles WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("Staff").
		WillReturnRows(sqlmock.NewRows(roleRowColumns).AddRow("r1", "staff", "Staff", []byte(`{"menus":["home"]}`), now, now))

	role, err := repo.FindByName(context.Background(), "Staff")
	require.NoError(t, err)
	assert.Equal(t, "staff", role.Name)
	assert.JSONEq(t, `{"menus":["home"]}`, string(role.Permissions))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleFindByNameNullPermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM roles WHERE LOWER").
		WillReturnRows(sqlmock.NewRows(roleRowColumns).AddRow("r1", "staff", "", nil, now, now))

	role, err := repo.FindByName(context.Background(), "staff")
	require.NoError(t, err)
	assert.Nil(t, role.Permissions)
}

func TestRoleFindByNameMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery("FROM roles WHERE LOWER").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRoleCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectExec("INSERT INTO roles").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Role{Name: "Staff"})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestRoleDeleteAndCountUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE LOWER(role) = LOWER($1)")).
		WithArgs("staff").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roles WHERE id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.CountUsers(context.Background(), "staff")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, repo.Delete(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
