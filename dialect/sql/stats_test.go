package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"

	"github.com/syssam/modelconnect/dialect"
)

func TestStatsDriver(t *testing.T) {
	co := connectPerson(t)
	stmt, err := Select(co, SelectOptions{Filter: Filter{{Field: "name", Value: "bob"}}})
	require.NoError(t, err)
	assert.Equal(t, KindSelect, stmt.Kind)
	assert.Equal(t, "person", stmt.Table)

	drv, mock := mockDriver(t)
	sd := NewStatsDriver(drv, WithSlowThreshold(time.Hour))
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name, age FROM person WHERE name = $1").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), "bob", int64(30)))
	for _, err := range StreamValues(ctx, sd, dialect.Postgres, co, stmt) {
		require.NoError(t, err)
	}

	mock.ExpectExec("DELETE FROM person").WillReturnError(errors.New("locked"))
	require.Error(t, sd.Exec(ctx, "DELETE FROM person", []any{}, nil))

	r := sd.Report()
	require.Len(t, r, 2)
	assert.Equal(t, Usage{Kind: KindExec, Count: 1, Errors: 1, Duration: r[0].Duration}, r[0])
	sel, ok := r.Find("person", KindSelect)
	require.True(t, ok)
	assert.EqualValues(t, 1, sel.Count)
	assert.Zero(t, sel.Errors)
	assert.Zero(t, sel.Slow)

	total := r.Total()
	assert.EqualValues(t, 2, total.Count)
	assert.EqualValues(t, 1, total.Errors)
	assert.Contains(t, r.String(), "exec=1 person.select=1 total=2 slow=0 errors=1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlowStatementLog(t *testing.T) {
	co := connectPerson(t)
	stmt, err := Count(co, SelectOptions{Filter: Filter{{Field: "age", Value: 3}}})
	require.NoError(t, err)

	drv, mock := mockDriver(t)
	core, logs := observer.New(zapcore.WarnLevel)
	sd := NewStatsDriver(drv, WithSlowThreshold(0), WithSlowQueryLog(zap.New(core)))
	mock.ExpectQuery("SELECT COUNT(*) FROM person WHERE age = $1").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	n, err := QueryCount(context.Background(), sd, dialect.Postgres, stmt)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	entries := logs.FilterMessage("slow statement").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, KindCount, fields["kind"])
	assert.Equal(t, "person", fields["table"])
	assert.Equal(t, "SELECT COUNT(*) FROM person WHERE age = $1", fields["query"])
	assert.EqualValues(t, 1, fields["args"])

	u, ok := sd.Report().Find("person", KindCount)
	require.True(t, ok)
	assert.EqualValues(t, 1, u.Slow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverSQLite(t *testing.T) {
	drv, err := Open(dialect.SQLite, "sqlite", "file::memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	sd := NewStatsDriver(drv, WithSlowThreshold(time.Hour))
	defer sd.Close()
	assert.Equal(t, dialect.SQLite, sd.Dialect())

	ctx := context.Background()
	require.NoError(t, sd.Exec(ctx, "CREATE TABLE person (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)", []any{}, nil))

	co := connectPerson(t)
	ins, err := InsertAs(co, []Person{{Name: "bob", Age: 30}, {Name: "joe", Age: 40}}, InsertOptions{}, dialect.Question)
	require.NoError(t, err)
	var inserted int
	for _, err := range StreamValues(ctx, sd, dialect.SQLite, co, ins) {
		require.NoError(t, err)
		inserted++
	}
	assert.Equal(t, 2, inserted)

	cnt, err := CountAs(co, SelectOptions{}, dialect.Question)
	require.NoError(t, err)
	n, err := QueryCount(ctx, sd, dialect.SQLite, cnt)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	r := sd.Report()
	for _, kind := range []string{KindInsert, KindCount} {
		u, ok := r.Find("person", kind)
		require.True(t, ok, kind)
		assert.EqualValues(t, 1, u.Count, kind)
	}
	u, ok := r.Find("", KindExec)
	require.True(t, ok)
	assert.EqualValues(t, 1, u.Count)
	assert.Zero(t, r.Total().Slow)
}
