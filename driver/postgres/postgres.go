package postgres

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/root-talis/anzen/driver"
)

type postgresDatabase struct {
	conn *sql.DB

	versionCode int64
	versionOk   bool
}

// New wraps an open Postgres connection as a capability provider. The
// server version is fetched on first use and cached for the lifetime of
// the wrapper, one round trip per migration run.
func New(conn *sql.DB) driver.Database {
	return &postgresDatabase{
		conn: conn,
	}
}

func (drv *postgresDatabase) Adapter() driver.Adapter {
	return driver.AdapterPostgres
}

func (drv *postgresDatabase) ServerVersionCode() (int64, error) {
	if drv.versionOk {
		return drv.versionCode, nil
	}

	// server_version_num is already the comparable code (e.g. 110000).
	var version string
	if err := drv.conn.QueryRow("SHOW server_version_num").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to query server version: %w", err)
	}

	code, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: \"%s\"", driver.ErrInvalidServerVersion, version)
	}

	drv.versionCode = code
	drv.versionOk = true

	return code, nil
}
