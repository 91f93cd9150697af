package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // "postgres" driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // "sqlite" driver

	"github.com/trezcool/feria/core"
)

// Engines
const (
	EnginePostgres = "postgres"
	EnginePgx      = "pgx"
	EngineSqlite   = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	sqlx.BindDriver(EngineSqlite, sqlx.QUESTION)
}

func dsn(dbName string, conf *core.Config) string {
	if conf.Database.DSN != "" {
		return conf.Database.DSN
	}
	if conf.Database.Engine == EngineSqlite {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbName)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open opens and pings the configured database.
func Open(conf *core.Config) (*sqlx.DB, error) {
	engine := conf.Database.Engine
	switch engine {
	case EnginePostgres, EnginePgx, EngineSqlite:
	default:
		return nil, errors.Errorf("unsupported database engine %q", engine)
	}

	db, err := sqlx.Open(engine, dsn(conf.Database.Name, conf))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if engine == EngineSqlite {
		// one writer; transactions must route every call through their executor
		db.SetMaxOpenConns(1)
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, core.NewStoreError("pinging database", err)
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func gooseDialect(engine string) string {
	if engine == EngineSqlite {
		return "sqlite3"
	}
	return "postgres"
}

// RunGoose runs a goose command ("up", "down", "status", "version", "redo", ...) on the embedded migrations.
func RunGoose(db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(gooseDialect(db.DriverName())); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db.DB, "migrations", args...); err != nil {
		return errors.Wrapf(err, "running migration command %q", command)
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	if err := RunGoose(db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
