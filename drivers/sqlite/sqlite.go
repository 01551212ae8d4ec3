package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver 实现 vicocomo.Driver
type SQLiteDriver struct{}

const DriverName = "sqlite3"

var driverInstance = &SQLiteDriver{}

func GetDriver() types.Driver { return driverInstance }

func (d *SQLiteDriver) Open(cfg types.DBConfig) (types.Conn, error) {
	conn, err := sql.Open(DriverName, cfg.DSN)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	if cfg.MaxOpen > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdle)
	}
	return &SQLiteDB{conn: conn, log: cfg.Log()}, nil
}

func (d *SQLiteDriver) Quote(identifier string) string {
	return fmt.Sprintf("`%s`", identifier)
}

func (d *SQLiteDriver) Placeholder(n int) string {
	return "?"
}

// scanRows 按期望类型逐列解码
func scanRows(rows *sql.Rows, typs []types.DbType) ([][]types.DbValue, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	if len(columns) != len(typs) {
		return nil, types.Database(fmt.Sprintf(
			"expected %d columns, got %d", len(typs), len(columns),
		))
	}
	result := [][]types.DbValue{}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		rawPtrs := make([]interface{}, len(columns))
		for i := range raw {
			rawPtrs[i] = &raw[i]
		}
		if err := rows.Scan(rawPtrs...); err != nil {
			return nil, types.DatabaseErr(err)
		}
		row := make([]types.DbValue, len(columns))
		for i, typ := range typs {
			v, err := types.Decode(i, typ, raw[i])
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.DatabaseErr(err)
	}
	return result, nil
}

// SQLiteDB 实现 vicocomo.Conn。$n 占位符在这里改写成 ?。
type SQLiteDB struct {
	conn *sql.DB
	log  zerolog.Logger
}

func (db *SQLiteDB) Exec(query string, params []types.DbValue) (int64, error) {
	stmt, args := sqlgen.Rewrite(query, params)
	db.log.Debug().Str("sql", stmt).Int("params", len(args)).Msg("exec")
	res, err := db.conn.Exec(stmt, types.Args(args)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return n, nil
}

func (db *SQLiteDB) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	stmt, args := sqlgen.Rewrite(query, params)
	db.log.Debug().Str("sql", stmt).Int("params", len(args)).Msg("query")
	rows, err := db.conn.Query(stmt, types.Args(args)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	defer rows.Close()
	return scanRows(rows, typs)
}

func (db *SQLiteDB) Begin() (types.Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return &SQLiteTx{tx: tx, log: db.log}, nil
}

func (db *SQLiteDB) Commit() error { return types.NotInTransaction() }

func (db *SQLiteDB) Rollback() error { return types.NotInTransaction() }

// SQLiteTx 实现 vicocomo.Tx
type SQLiteTx struct {
	tx  *sql.Tx
	log zerolog.Logger
}

func (tx *SQLiteTx) Exec(query string, params []types.DbValue) (int64, error) {
	stmt, args := sqlgen.Rewrite(query, params)
	tx.log.Debug().Str("sql", stmt).Int("params", len(args)).Msg("exec")
	res, err := tx.tx.Exec(stmt, types.Args(args)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return n, nil
}

func (tx *SQLiteTx) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	stmt, args := sqlgen.Rewrite(query, params)
	tx.log.Debug().Str("sql", stmt).Int("params", len(args)).Msg("query")
	rows, err := tx.tx.Query(stmt, types.Args(args)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	defer rows.Close()
	return scanRows(rows, typs)
}

func (tx *SQLiteTx) Begin() (types.Tx, error) {
	return nil, types.AlreadyInTransaction()
}

func (tx *SQLiteTx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}

func (tx *SQLiteTx) Rollback() error {
	if err := tx.tx.Rollback(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}
