package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
)

// repository holds what every sqlx repository shares: the pool and its placeholder style.
type repository struct {
	db   *sqlx.DB
	bind int
}

func newRepository(db *sqlx.DB) repository {
	return repository{db: db, bind: sqlx.BindType(db.DriverName())}
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// rebind expands slice arguments into "IN (?, ...)" lists and converts placeholders to the driver's style.
func (repo repository) rebind(query string, args []interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(repo.bind, query), args, nil
}

func (repo repository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	query, args, err := repo.rebind(query, args)
	if err != nil {
		return err
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

func (repo repository) exec(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	query, args, err := repo.rebind(query, args)
	if err != nil {
		return 0, err
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (repo repository) exists(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (bool, error) {
	query, args, err := repo.rebind(query, args)
	if err != nil {
		return false, err
	}
	var n int
	if err = exec.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// wrapErr maps connection failures to core.StoreError and wraps everything else.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return core.NewStoreError(msg, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.NewStoreError(msg, err)
	}
	return errors.Wrap(err, msg)
}

// conditions accumulates "AND"-ed WHERE clauses.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, "("+clause+")")
	c.args = append(c.args, args...)
}

func (c *conditions) String() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
