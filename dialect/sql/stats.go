package sql

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/modelconnect/internal/metrics"
)

// Fallback kinds of queries run without a compiled statement.
const (
	KindQuery = "query"
	KindExec  = "exec"
)

// Usage summarizes the executions of one statement kind against one table.
type Usage struct {
	Table    string
	Kind     string
	Count    int64
	Errors   int64
	Slow     int64
	Duration time.Duration
}

// Report is a point-in-time view of statement usage, ordered by table and
// kind.
type Report []Usage

// Find returns the usage of kind against table.
func (r Report) Find(table, kind string) (Usage, bool) {
	for _, u := range r {
		if u.Table == table && u.Kind == kind {
			return u, true
		}
	}
	return Usage{}, false
}

// Total sums every entry of the report.
func (r Report) Total() Usage {
	var t Usage
	for _, u := range r {
		t.Count += u.Count
		t.Errors += u.Errors
		t.Slow += u.Slow
		t.Duration += u.Duration
	}
	return t
}

// String implements fmt.Stringer.
//
//	person.select=2 person.count=1 query=1 total=4 slow=0 errors=0 duration=1.2ms
func (r Report) String() string {
	var b strings.Builder
	for _, u := range r {
		if u.Table != "" {
			b.WriteString(u.Table + ".")
		}
		fmt.Fprintf(&b, "%s=%d ", u.Kind, u.Count)
	}
	t := r.Total()
	fmt.Fprintf(&b, "total=%d slow=%d errors=%d duration=%s", t.Count, t.Slow, t.Errors, t.Duration)
	return b.String()
}

// StatsDriver wraps a Driver and records the usage of every statement run
// through it. Statements run with QueryStatement, and therefore Stream and
// QueryCount, are labeled with their kind and table. Other queries count
// as KindQuery or KindExec without a table.
type StatsDriver struct {
	drv    *Driver
	slow   time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	usage map[usageKey]*Usage
}

type usageKey struct{ table, kind string }

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slow = d
	}
}

// WithSlowQueryLog logs slow statements as warnings. A nil logger uses the
// global zap logger.
func WithSlowQueryLog(l *zap.Logger) StatsOption {
	return func(s *StatsDriver) {
		if l == nil {
			l = zap.L()
		}
		s.logger = l
	}
}

// NewStatsDriver wraps drv with usage collection.
//
//	drv, _ := sql.Open(dialect.Postgres, "pgx", dsn)
//	sd := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
//	for p, err := range sql.Stream[Person](ctx, sd, sd.Dialect(), co, stmt) {
//		...
//	}
//	fmt.Println(sd.Report()) // person.select=1 total=1 slow=0 errors=0 duration=2ms
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		drv:   drv,
		slow:  100 * time.Millisecond,
		usage: make(map[usageKey]*Usage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns the dialect of the wrapped driver.
func (d *StatsDriver) Dialect() string { return d.drv.Dialect() }

// Close closes the wrapped driver.
func (d *StatsDriver) Close() error { return d.drv.Close() }

// Query runs a query and records its usage.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.drv.Query(ctx, query, args, v)
	d.record(ctx, KindQuery, query, args, time.Since(start), err)
	return err
}

// Exec runs a statement and records its usage.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.drv.Exec(ctx, query, args, v)
	d.record(ctx, KindExec, query, args, time.Since(start), err)
	return err
}

// Report returns the usage recorded so far.
func (d *StatsDriver) Report() Report {
	d.mu.Lock()
	r := make(Report, 0, len(d.usage))
	for _, u := range d.usage {
		r = append(r, *u)
	}
	d.mu.Unlock()
	slices.SortFunc(r, func(a, b Usage) int {
		return cmp.Or(cmp.Compare(a.Table, b.Table), cmp.Compare(a.Kind, b.Kind))
	})
	return r
}

func (d *StatsDriver) record(ctx context.Context, kind, query string, args any, elapsed time.Duration, err error) {
	k := usageKey{kind: kind}
	if s, ok := StatementFrom(ctx); ok && s.Kind != "" {
		k = usageKey{table: s.Table, kind: s.Kind}
	}
	slow := elapsed > d.slow

	d.mu.Lock()
	u, ok := d.usage[k]
	if !ok {
		u = &Usage{Table: k.table, Kind: k.kind}
		d.usage[k] = u
	}
	u.Count++
	u.Duration += elapsed
	if err != nil {
		u.Errors++
	}
	if slow {
		u.Slow++
	}
	d.mu.Unlock()

	metrics.ObserveQuery(k.kind, k.table, elapsed, err)
	if !slow {
		return
	}
	metrics.SlowStatements.WithLabelValues(k.kind, k.table).Inc()
	if d.logger != nil {
		n := 0
		if a, ok := args.([]any); ok {
			n = len(a)
		}
		d.logger.Warn("slow statement",
			zap.String("kind", k.kind),
			zap.String("table", k.table),
			zap.Duration("duration", elapsed),
			zap.String("query", query),
			zap.Int("args", n),
		)
	}
}
