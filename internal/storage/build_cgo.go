//go:build sqlite_vec
// +build sqlite_vec

package storage

// CGO build: mattn/go-sqlite3 with a cosine distance SQL function registered
// on every connection, chunk ranking in SQL.
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3_govsense"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(cosineDistanceFunc, blobCosineDistance, true)
		},
	})
}

// blobCosineDistance compares two serialized vectors. Blobs of different
// length are at distance 1, like zero vectors.
func blobCosineDistance(a, b []byte) float64 {
	if len(a) != len(b) {
		return 1
	}
	return CosineDistance(deserializeVector(a), deserializeVector(b))
}

// driverDSN adds connection settings in go-sqlite3's query parameter syntax
func driverDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_busy_timeout=5000&_txlock=immediate"
}
