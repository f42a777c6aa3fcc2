package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// dialect holds what differs between the supported engines: driver name,
// placeholder style, DSN fixups and a few SQL fragments.
type dialect struct {
	name      string
	sqlDriver string
	numbered  bool
	hourOfDay string
	// maxBindVars is the most placeholders one statement may carry.
	maxBindVars int
	prepareDSN  func(string) (string, error)
	migrateDB   func(*sql.DB) (database.Driver, error)
}

var dialects = map[string]dialect{
	"sqlite": {
		name:        "sqlite",
		sqlDriver:   "sqlite",
		hourOfDay:   "CAST(strftime('%H', time) AS INTEGER)",
		maxBindVars: 32766,
		prepareDSN:  sqliteDSN,
		migrateDB: func(db *sql.DB) (database.Driver, error) {
			return migratesqlite.WithInstance(db, &migratesqlite.Config{})
		},
	},
	"mysql": {
		name:        "mysql",
		sqlDriver:   "mysql",
		hourOfDay:   "HOUR(time)",
		maxBindVars: 65535,
		prepareDSN:  mysqlDSN,
		migrateDB: func(db *sql.DB) (database.Driver, error) {
			return migratemysql.WithInstance(db, &migratemysql.Config{})
		},
	},
	"postgres": {
		name:        "postgres",
		sqlDriver:   "pgx",
		numbered:    true,
		hourOfDay:   "CAST(EXTRACT(HOUR FROM time) AS INTEGER)",
		maxBindVars: 65535,
		prepareDSN:  func(dsn string) (string, error) { return dsn, nil },
		migrateDB: func(db *sql.DB) (database.Driver, error) {
			return migratepgx.WithInstance(db, &migratepgx.Config{})
		},
	},
}

// maxBatchSize is the largest number of rows that fit in one INSERT.
func (d dialect) maxBatchSize() int {
	return d.maxBindVars / len(Schema)
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return d, nil
}

// placeholder returns the bind marker for the n-th (1-based) argument.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// rebind rewrites a query written with ? markers into the dialect's style.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqliteDSN asks modernc to write times in a format strftime understands.
func sqliteDSN(dsn string) (string, error) {
	if strings.Contains(dsn, "_time_format=") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite", nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
