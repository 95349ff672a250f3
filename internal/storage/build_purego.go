//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Pure Go build: modernc.org/sqlite, procedure chunks ranked in Go.
//
//   CGO_ENABLED=0 go build -tags "purego" ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

// driverDSN adds connection settings in modernc's _pragma syntax. An import
// from the CLI may hold the write lock while the server is running, so
// writers wait instead of failing with SQLITE_BUSY.
func driverDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_txlock=immediate"
}
