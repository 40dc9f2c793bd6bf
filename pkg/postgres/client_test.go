package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	c := NewFromDB(db)
	require.NoError(t, c.Migrate(context.Background(),
		"CREATE TABLE IF NOT EXISTS a (id INT)",
		"CREATE INDEX IF NOT EXISTS b ON a (id)",
	))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("syntax error")
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(boom)
	mock.ExpectRollback()

	err = NewFromDB(db).Migrate(context.Background(), "CREATE TABLE broken")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migration statement 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}
