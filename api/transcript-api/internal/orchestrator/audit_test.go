package internal_orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
)

// --- Audit Durability Tests ---

func newMockedOrchestrator(t *testing.T, strict bool) (*Orchestrator, sqlmock.Sqlmock) {
	t.Helper()
	sqlDb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDb.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDb}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)

	cfg := &config.AppConfig{AuditStrict: strict, CallbackHost: "https://api.example.com"}
	return New(cfg, commons.NewNoopLogger(), &testConnector{db: db}, nil, nil, nil, nil), mock
}

func TestAuditStrictRollsBackTransition(t *testing.T) {
	o, mock := newMockedOrchestrator(t, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "transcripts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transcript_audit_logs"`).WillReturnError(fmt.Errorf("audit store down"))
	mock.ExpectRollback()

	err := o.Fail(context.Background(), "t-1", "boom", Provenance{Actor: 33})
	require.Error(t, err, "strict mode propagates the audit failure")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditStrictCommitsBothWrites(t *testing.T) {
	o, mock := newMockedOrchestrator(t, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "transcripts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transcript_audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := o.Fail(context.Background(), "t-1", "boom", Provenance{Actor: 33})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditDefaultSwallowsAppendFailure(t *testing.T) {
	o, mock := newMockedOrchestrator(t, false)

	mock.ExpectExec(`UPDATE "transcripts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transcript_audit_logs"`).WillReturnError(fmt.Errorf("audit store down"))

	err := o.Fail(context.Background(), "t-1", "boom", Provenance{Actor: 33})
	require.NoError(t, err, "the business transition outlives a lost audit entry")
	require.NoError(t, mock.ExpectationsWereMet())
}
