//go:build !cgo_sqlite

package catalog

// Pure-Go sqlite driver, the default build: no CGO toolchain required.
import _ "modernc.org/sqlite"

const sqlDriverName = "sqlite"
