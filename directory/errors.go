package directory

import (
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/lib/pq"
)

// isOperational reports whether err is the kind of transient connection
// failure spec.md §4.1/§7 calls "directory transient": a dropped
// connection, a server restart, a network partition. These are the
// errors Client retries forever; everything else (syntax, permission,
// scan/type mismatches) is "directory fatal" and propagates.
func isOperational(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection exception
			return true
		case "57": // operator intervention (admin shutdown, crash, etc.)
			return true
		default:
			return false
		}
	}
	// Of the remaining errors, those with a Timeout method (such as the
	// net.OpError from a dropped TCP connection) are treated as
	// operational: lib/pq surfaces most connection failures as bare net
	// errors rather than *pq.Error once the socket itself is gone. Any
	// other error is fatal.
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr)
}
