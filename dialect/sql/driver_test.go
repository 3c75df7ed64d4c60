package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect/dialect"
)

func TestOpenDB(t *testing.T) {
	for _, d := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		t.Run(d, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(d, db)
			assert.Equal(t, d, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("exec_with_args", func(t *testing.T) {
		mock.ExpectExec("UPDATE person SET name = \\$1 WHERE id = \\$2").
			WithArgs("Alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		var res Result
		err := drv.Exec(context.Background(), "UPDATE person SET name = $1 WHERE id = $2", []any{"Alice", 1}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))
		err := drv.Exec(context.Background(), "DELETE FROM person", []any{}, nil)
		require.ErrorContains(t, err, "dialect/sql: exec")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		assert.Error(t, drv.Exec(context.Background(), "DELETE FROM person", "x", nil))
		assert.Error(t, drv.Query(context.Background(), "SELECT 1", []any{}, new(int)))
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM person").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	rows := &Rows{}
	require.NoError(t, tx.Query(context.Background(), "SELECT id FROM person", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepare(t *testing.T) {
	co := connectPerson(t)
	stmt, err := Select(co, SelectOptions{
		Filter: Filter{{Field: "id", Value: []int{1, 2}}, {Field: "name", Value: "bob"}},
	})
	require.NoError(t, err)

	ps, err := Prepare(dialect.Postgres, stmt)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, age FROM person WHERE id IN ($1, $2) AND name = $3", ps.SQL)
	assert.Equal(t, []any{1, 2, "bob"}, ps.Args)

	ps, err = Prepare(dialect.MySQL, stmt)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, age FROM person WHERE id IN (?, ?) AND name = ?", ps.SQL)

	_, err = Prepare("oracle", stmt)
	assert.Error(t, err)
}

func TestQueryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	co := connectPerson(t)
	stmt, err := Select(co, SelectOptions{Filter: Filter{{Field: "id", Value: []int{1, 2}}}})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, name, age FROM person WHERE id IN \(\$1, \$2\)`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(1, "Alice", 30))
	rows, err := QueryStatement(context.Background(), drv, drv.Dialect(), stmt)
	require.NoError(t, err)
	require.True(t, rows.Next())
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
