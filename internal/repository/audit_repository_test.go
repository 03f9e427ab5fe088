package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqrolife/iqrolife-api/internal/models"
)

var auditRowColumns = []string{"id", "user_id", "action", "resource", "resource_id", "description", "ip_address", "user_agent", "created_at"}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	entry := &models.AuditLog{UserID: &userID, Action: models.AuditActionLogin, Resource: "auth", Description: "user logged in"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsFiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE action = $1 AND user_id = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("LOGIN", "u1").
		WillReturnRows(sqlmock.NewRows(auditRowColumns).AddRow("a1", "u1", "LOGIN", "auth", "u1", "user logged in", "127.0.0.1", "test", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND user_id = $2")).
		WithArgs("LOGIN", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	logs, total, err := repo.List(context.Background(), models.AuditFilter{Action: "login", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "user logged in", logs[0].Description)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsForExport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	from := time.Now().Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE created_at >= $1 ORDER BY created_at DESC LIMIT 500")).
		WithArgs(from).
		WillReturnRows(sqlmock.NewRows(auditRowColumns))

	logs, err := repo.ListForExport(context.Background(), models.AuditFilter{From: &from}, 500)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
