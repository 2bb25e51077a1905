package database

import (
	"database/sql"
	"errors"
	"regexp"

	"github.com/thrasher-corp/backtester/data"
)

const (
	// SQLite3 is the driver name of the sqlite provider
	SQLite3 = "sqlite3"
	// Postgres is the driver name of the postgres provider
	Postgres = "postgres"
)

var (
	errUnsupportedDriver = errors.New("unsupported database driver")
	errNoDSN             = errors.New("database dsn not set")
	errNoTable           = errors.New("database table not set")
	errInvalidIdentifier = errors.New("invalid sql identifier")
	errUnsupportedValue  = errors.New("unsupported column value")

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Provider streams bars from a sql table ordered by timestamp then symbol
type Provider struct {
	db         *sql.DB
	rows       *sql.Rows
	driver     string
	query      string
	args       []any
	dateFormat string
	batchSize  int
	line       int64
	done       bool
}

// compile time check
var _ data.Provider = (*Provider)(nil)
