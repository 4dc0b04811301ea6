package directory

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
)

// fakeState is the shared, in-memory "database" a fakeDriver serves. It
// lets client_test.go script operational errors (driver.ErrBadConn) for
// the first N queries, whichever table they read, then succeed, so Client's
// reconnect path can be exercised without a live Postgres.
type fakeState struct {
	mu sync.Mutex

	failuresBeforeSuccess int
	attempts              int

	collections map[string]int64
	nodes       map[int64][]NodeRow
}

func newFakeState() *fakeState {
	return &fakeState{
		collections: make(map[string]int64),
		nodes:       make(map[int64][]NodeRow),
	}
}

type fakeDriver struct {
	state *fakeState
}

func (d fakeDriver) Open(name string) (driver.Conn, error) {
	return &fakeConn{state: d.state}, nil
}

type fakeConn struct {
	state *fakeState
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("fakeConn: Prepare unsupported, use QueryContext")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("fakeConn: transactions unsupported")
}

// QueryContext implements driver.QueryerContext, which database/sql
// prefers over the legacy driver.Queryer.Query when present.
func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	c.state.attempts++
	if c.state.attempts <= c.state.failuresBeforeSuccess {
		return nil, driver.ErrBadConn
	}

	switch {
	case strings.Contains(query, "nimbusio_central.collection"):
		name, _ := args[0].Value.(string)
		id, ok := c.state.collections[name]
		if !ok {
			return &fakeRows{cols: []string{"cluster_id"}}, nil
		}
		return &fakeRows{cols: []string{"cluster_id"}, data: [][]driver.Value{{id}}}, nil

	case strings.Contains(query, "nimbusio_central.node"):
		id, _ := args[0].Value.(int64)
		rows := c.state.nodes[id]
		data := make([][]driver.Value, len(rows))
		for i, r := range rows {
			data[i] = []driver.Value{r.Name, r.Host, int64(r.NodeNumber)}
		}
		return &fakeRows{cols: []string{"name", "hostname", "node_number_in_cluster"}, data: data}, nil

	default:
		return nil, fmt.Errorf("fakeConn: unrecognized query %q", query)
	}
}

type fakeRows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *fakeRows) Columns() []string { return r.cols }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
