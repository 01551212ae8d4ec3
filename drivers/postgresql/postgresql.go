package postgresql

import (
	"database/sql"
	"fmt"

	"github.com/Kaguya154/vicocomo/types"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq"
)

// PostgreSQLDriver 实现 vicocomo.Driver
type PostgreSQLDriver struct{}

const DriverName = "postgres"

var driverInstance = &PostgreSQLDriver{}

func GetDriver() types.Driver { return driverInstance }

func (d *PostgreSQLDriver) Open(cfg types.DBConfig) (types.Conn, error) {
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
	return &PostgreSQLDB{conn: conn, log: cfg.Log()}, nil
}

func (d *PostgreSQLDriver) Quote(identifier string) string {
	return fmt.Sprintf("%q", identifier)
}

func (d *PostgreSQLDriver) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
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

// PostgreSQLDB 实现 vicocomo.Conn，$n 占位符原样传给后端
type PostgreSQLDB struct {
	conn *sql.DB
	log  zerolog.Logger
}

func (db *PostgreSQLDB) Exec(query string, params []types.DbValue) (int64, error) {
	db.log.Debug().Str("sql", query).Int("params", len(params)).Msg("exec")
	res, err := db.conn.Exec(query, types.Args(params)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return n, nil
}

func (db *PostgreSQLDB) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	db.log.Debug().Str("sql", query).Int("params", len(params)).Msg("query")
	rows, err := db.conn.Query(query, types.Args(params)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	defer rows.Close()
	return scanRows(rows, typs)
}

func (db *PostgreSQLDB) Begin() (types.Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return &PostgreSQLTx{tx: tx, log: db.log}, nil
}

func (db *PostgreSQLDB) Commit() error { return types.NotInTransaction() }

func (db *PostgreSQLDB) Rollback() error { return types.NotInTransaction() }

// PostgreSQLTx 实现 vicocomo.Tx
type PostgreSQLTx struct {
	tx  *sql.Tx
	log zerolog.Logger
}

func (tx *PostgreSQLTx) Exec(query string, params []types.DbValue) (int64, error) {
	tx.log.Debug().Str("sql", query).Int("params", len(params)).Msg("exec")
	res, err := tx.tx.Exec(query, types.Args(params)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return n, nil
}

func (tx *PostgreSQLTx) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	tx.log.Debug().Str("sql", query).Int("params", len(params)).Msg("query")
	rows, err := tx.tx.Query(query, types.Args(params)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	defer rows.Close()
	return scanRows(rows, typs)
}

func (tx *PostgreSQLTx) Begin() (types.Tx, error) {
	return nil, types.AlreadyInTransaction()
}

func (tx *PostgreSQLTx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}

func (tx *PostgreSQLTx) Rollback() error {
	if err := tx.tx.Rollback(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}
