package mysql

import (
	"database/sql"
	"fmt"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
	"github.com/rs/zerolog"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDriver 实现 vicocomo.Driver。MySQL 不支持 RETURNING，
// 模型层的插入和更新在这个后端会返回底层错误。
type MySQLDriver struct{}

const DriverName = "mysql"

var driverInstance = &MySQLDriver{}

func GetDriver() types.Driver { return driverInstance }

func (d *MySQLDriver) Open(cfg types.DBConfig) (types.Conn, error) {
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
	return &MySQLDB{conn: conn, log: cfg.Log()}, nil
}

func (d *MySQLDriver) Quote(identifier string) string {
	return fmt.Sprintf("`%s`", identifier)
}

func (d *MySQLDriver) Placeholder(n int) string {
	return "?"
}

// scanRows 按期望类型逐列解码。MySQL 驱动常把数值也扫成 []byte，
// 这里先转一道。
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
		scan := make([]interface{}, len(columns))
		for i, typ := range typs {
			switch typ {
			case types.DbFloat, types.DbNulFloat:
				scan[i] = new(sql.NullFloat64)
			case types.DbInt, types.DbNulInt:
				scan[i] = new(sql.NullInt64)
			default:
				scan[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, types.DatabaseErr(err)
		}
		row := make([]types.DbValue, len(columns))
		for i, typ := range typs {
			var raw interface{}
			switch v := scan[i].(type) {
			case *sql.NullFloat64:
				if v.Valid {
					raw = v.Float64
				}
			case *sql.NullInt64:
				if v.Valid {
					raw = v.Int64
				}
			case *sql.NullString:
				if v.Valid {
					raw = v.String
				}
			}
			dv, err := types.Decode(i, typ, raw)
			if err != nil {
				return nil, err
			}
			row[i] = dv
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.DatabaseErr(err)
	}
	return result, nil
}

// MySQLDB 实现 vicocomo.Conn。$n 占位符在这里改写成 ?。
type MySQLDB struct {
	conn *sql.DB
	log  zerolog.Logger
}

func (db *MySQLDB) Exec(query string, params []types.DbValue) (int64, error) {
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

func (db *MySQLDB) Query(
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

func (db *MySQLDB) Begin() (types.Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return &MySQLTx{tx: tx, log: db.log}, nil
}

func (db *MySQLDB) Commit() error { return types.NotInTransaction() }

func (db *MySQLDB) Rollback() error { return types.NotInTransaction() }

// MySQLTx 实现 vicocomo.Tx
type MySQLTx struct {
	tx  *sql.Tx
	log zerolog.Logger
}

func (tx *MySQLTx) Exec(query string, params []types.DbValue) (int64, error) {
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

func (tx *MySQLTx) Query(
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

func (tx *MySQLTx) Begin() (types.Tx, error) {
	return nil, types.AlreadyInTransaction()
}

func (tx *MySQLTx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}

func (tx *MySQLTx) Rollback() error {
	if err := tx.tx.Rollback(); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}
