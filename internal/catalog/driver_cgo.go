//go:build cgo_sqlite

package catalog

// CGO-linked sqlite3 driver, opted into with -tags cgo_sqlite for
// deployments that already carry a CGO toolchain and want native sqlite3
// rather than the pure-Go port.
import _ "github.com/mattn/go-sqlite3"

const sqlDriverName = "sqlite3"
