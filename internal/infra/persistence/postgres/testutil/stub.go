// Package testutil provides a stub database/sql driver for postgres store tests.
// It understands the narrow statement shapes the store issues against the
// species table: INSERT, single-predicate UPDATE/DELETE/SELECT and DDL.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq uint64

// StubConn records normalized statements and keeps table rows in memory.
type StubConn struct {
	mu       sync.Mutex
	Execs    []string
	Queries  []string
	Args     [][]any
	Tables   map[string][]map[string]any
	FailPing bool
	// ExecErr, when set, is returned verbatim by every non-DDL exec.
	ExecErr error
	// DDLErr, when set, is returned by CREATE statements.
	DDLErr   error
	QueryErr error
	RowsErr  error
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Seed appends a row to the named table.
func (c *StubConn) Seed(table string, row map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Tables[table] = append(c.Tables[table], row)
}

// Rows returns a copy of the rows of the named table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.Tables[table]))
	for _, r := range c.Tables[table] {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt := normalize(query)
	c.Execs = append(c.Execs, stmt)
	c.Args = append(c.Args, values(args))
	upper := strings.ToUpper(stmt)
	if strings.HasPrefix(upper, "CREATE") {
		if c.DDLErr != nil {
			return nil, c.DDLErr
		}
		return driver.RowsAffected(0), nil
	}
	if c.ExecErr != nil {
		return nil, c.ExecErr
	}
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, err := parseInsert(stmt)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		c.Tables[table] = append(c.Tables[table], row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "UPDATE"):
		table, sets, where, err := parseUpdate(stmt)
		if err != nil {
			return nil, err
		}
		if len(args) != len(sets)+1 {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		target := args[len(args)-1].Value
		var affected int64
		for _, row := range c.Tables[table] {
			if row[where] != target {
				continue
			}
			for i, col := range sets {
				row[col] = args[i].Value
			}
			affected++
		}
		return driver.RowsAffected(affected), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, col, err := parseDelete(stmt)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		target := args[0].Value
		var kept []map[string]any
		var affected int64
		for _, row := range c.Tables[table] {
			if row[col] == target {
				affected++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(affected), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", stmt)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt := normalize(query)
	c.Queries = append(c.Queries, stmt)
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	table, cols, where, err := parseSelect(stmt)
	if err != nil {
		return nil, err
	}
	var target any
	if where != "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for select %s", table)
		}
		target = args[0].Value
	}
	matched := make([]map[string]any, 0, len(c.Tables[table]))
	for _, row := range c.Tables[table] {
		if where != "" && row[where] != target {
			continue
		}
		matched = append(matched, row)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return fmt.Sprint(matched[i]["id"]) < fmt.Sprint(matched[j]["id"])
	})
	out := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out = append(out, vals)
	}
	return &stubRows{cols: cols, rows: out, err: c.RowsErr}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func values(args []driver.NamedValue) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, a.Value)
	}
	return out
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	return table, splitColumns(rest[open+1 : closeIdx]), nil
}

// parseUpdate handles "UPDATE t SET a = $1, b = $2 WHERE id = $3".
func parseUpdate(query string) (string, []string, string, error) {
	lower := strings.ToLower(query)
	setIdx := strings.Index(lower, " set ")
	whereIdx := strings.Index(lower, " where ")
	if !strings.HasPrefix(lower, "update ") || setIdx == -1 || whereIdx == -1 || whereIdx < setIdx {
		return "", nil, "", fmt.Errorf("cannot parse update: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(query[len("update "):setIdx]))
	var cols []string
	for _, assignment := range strings.Split(query[setIdx+len(" set "):whereIdx], ",") {
		parts := strings.SplitN(assignment, "=", 2)
		cols = append(cols, strings.ToLower(strings.TrimSpace(parts[0])))
	}
	where, err := predicateColumn(query[whereIdx+len(" where "):])
	if err != nil {
		return "", nil, "", err
	}
	return table, cols, where, nil
}

func parseDelete(query string) (string, string, error) {
	lower := strings.ToLower(query)
	prefix := "delete from "
	whereToken := " where "
	if !strings.HasPrefix(lower, prefix) {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	rest := strings.TrimSpace(query[len(prefix):])
	whereIdx := strings.Index(strings.ToLower(rest), whereToken)
	if whereIdx == -1 {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:whereIdx]))
	col, err := predicateColumn(rest[whereIdx+len(whereToken):])
	if err != nil {
		return "", "", err
	}
	return table, col, nil
}

// parseSelect handles "SELECT a, b FROM t [WHERE id = $1] [ORDER BY ...]".
func parseSelect(query string) (string, []string, string, error) {
	lower := strings.ToLower(query)
	fromIdx := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || fromIdx == -1 {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	cols := splitColumns(query[len("select "):fromIdx])
	rest := strings.Fields(query[fromIdx+len(" from "):])
	if len(rest) == 0 {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	table := strings.ToLower(rest[0])
	where := ""
	if idx := strings.Index(lower, " where "); idx != -1 {
		clause := query[idx+len(" where "):]
		if o := strings.Index(strings.ToLower(clause), " order by "); o != -1 {
			clause = clause[:o]
		}
		col, err := predicateColumn(clause)
		if err != nil {
			return "", nil, "", err
		}
		where = col
	}
	return table, cols, where, nil
}

func predicateColumn(clause string) (string, error) {
	parts := strings.SplitN(clause, "=", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("cannot parse predicate: %s", clause)
	}
	return strings.ToLower(strings.TrimSpace(parts[0])), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
