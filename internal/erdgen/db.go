package erdgen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func openDatabase(ctx context.Context, cfg Config) (*sql.DB, error) {
	var (
		driverName string
		dsn        string
	)

	switch cfg.DBType {
	case "sqlite":
		driverName = "sqlite"
		dsn = normalizeSQLiteDSN(cfg.DBURL)
		if err := validateSQLiteLocation(dsn); err != nil {
			return nil, err
		}
	case "postgres":
		driverName = "pgx"
		dsn = strings.TrimSpace(cfg.DBURL)
	case "mysql":
		driverName = "mysql"
		dsn = strings.TrimSpace(cfg.DBURL)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(4)

	if cfg.DBType == "sqlite" {
		db.SetMaxIdleConns(1)
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// normalizeSQLiteDSN strips the URI scheme variants accepted on the command
// line down to what the sqlite driver understands. The three-slash forms are
// SQLAlchemy-style relative locators.
func normalizeSQLiteDSN(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"sqlite3:///", "sqlite:///", "sqlite3://", "sqlite://"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

func sqlitePathFromDSN(dsn string) (string, bool) {
	s := strings.TrimSpace(dsn)
	s = strings.TrimPrefix(s, "file:")
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == ":memory:" {
		return "", false
	}
	return s, true
}

func validateSQLiteLocation(dsn string) error {
	path, ok := sqlitePathFromDSN(dsn)
	if !ok {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("sqlite database %q does not exist", path)
		}
		return fmt.Errorf("check sqlite database: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("sqlite location %q points to a directory, expected a database file", path)
	}

	return nil
}
