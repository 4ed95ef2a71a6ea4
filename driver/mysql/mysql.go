package mysql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/root-talis/anzen/driver"
)

type mysqlDatabase struct {
	conn *sql.DB

	versionCode int64
	versionOk   bool
}

// New wraps an open MySQL/MariaDB connection as a capability provider.
// MySQL is not Postgres, so every Postgres-specific rule stays silent and
// only the adapter-independent rules apply.
func New(conn *sql.DB) driver.Database {
	return &mysqlDatabase{
		conn: conn,
	}
}

func (drv *mysqlDatabase) Adapter() driver.Adapter {
	return driver.AdapterOther
}

func (drv *mysqlDatabase) ServerVersionCode() (int64, error) {
	if drv.versionOk {
		return drv.versionCode, nil
	}

	var version string
	if err := drv.conn.QueryRow("SELECT VERSION()").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to query server version: %w", err)
	}

	code, err := ParseVersion(version)
	if err != nil {
		return 0, err
	}

	drv.versionCode = code
	drv.versionOk = true

	return code, nil
}

// ParseVersion converts a VERSION() string such as "8.0.32-log" or
// "10.6.4-MariaDB" into a comparable version code (80032, 100604).
func ParseVersion(version string) (int64, error) {
	base := version
	if i := strings.IndexRune(base, '-'); i >= 0 {
		base = base[:i]
	}

	parts := strings.Split(base, ".")
	if len(parts) < 2 { //nolint:gomnd
		return 0, fmt.Errorf("%w: \"%s\"", driver.ErrInvalidServerVersion, version)
	}

	var code int64
	for i := 0; i < 3; i++ {
		var number int64

		if i < len(parts) {
			parsed, err := strconv.ParseInt(parts[i], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: \"%s\"", driver.ErrInvalidServerVersion, version)
			}
			number = parsed
		}

		code = code*100 + number
	}

	return code, nil
}
