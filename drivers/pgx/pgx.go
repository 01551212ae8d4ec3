package pgx

import (
	"context"
	"fmt"

	"github.com/Kaguya154/vicocomo/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PgxDriver 实现 vicocomo.Driver，用 pgxpool 而不是 database/sql。
// Conn 接口是同步的，内部统一用 context.Background()。
type PgxDriver struct{}

const DriverName = "pgx"

var driverInstance = &PgxDriver{}

func GetDriver() types.Driver { return driverInstance }

func (d *PgxDriver) Open(cfg types.DBConfig) (types.Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	if cfg.MaxOpen > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpen)
	}
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return &PgxDB{pool: pool, ctx: ctx, log: cfg.Log()}, nil
}

func (d *PgxDriver) Quote(identifier string) string {
	return fmt.Sprintf("%q", identifier)
}

func (d *PgxDriver) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func decodeRows(rows pgx.Rows, typs []types.DbType) ([][]types.DbValue, error) {
	defer rows.Close()
	if got := len(rows.FieldDescriptions()); got != len(typs) {
		return nil, types.Database(fmt.Sprintf(
			"expected %d columns, got %d", len(typs), got,
		))
	}
	result := [][]types.DbValue{}
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, types.DatabaseErr(err)
		}
		row := make([]types.DbValue, len(typs))
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

// PgxDB 实现 vicocomo.Conn，$n 占位符原样传给后端
type PgxDB struct {
	pool *pgxpool.Pool
	ctx  context.Context
	log  zerolog.Logger
}

func (db *PgxDB) Exec(query string, params []types.DbValue) (int64, error) {
	db.log.Debug().Str("sql", query).Int("params", len(params)).Msg("exec")
	tag, err := db.pool.Exec(db.ctx, query, types.Args(params)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return tag.RowsAffected(), nil
}

func (db *PgxDB) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	db.log.Debug().Str("sql", query).Int("params", len(params)).Msg("query")
	rows, err := db.pool.Query(db.ctx, query, types.Args(params)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return decodeRows(rows, typs)
}

func (db *PgxDB) Begin() (types.Tx, error) {
	tx, err := db.pool.Begin(db.ctx)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return &PgxTx{tx: tx, ctx: db.ctx, log: db.log}, nil
}

func (db *PgxDB) Commit() error { return types.NotInTransaction() }

func (db *PgxDB) Rollback() error { return types.NotInTransaction() }

// PgxTx 实现 vicocomo.Tx
type PgxTx struct {
	tx  pgx.Tx
	ctx context.Context
	log zerolog.Logger
}

func (tx *PgxTx) Exec(query string, params []types.DbValue) (int64, error) {
	tx.log.Debug().Str("sql", query).Int("params", len(params)).Msg("exec")
	tag, err := tx.tx.Exec(tx.ctx, query, types.Args(params)...)
	if err != nil {
		return 0, types.DatabaseErr(err)
	}
	return tag.RowsAffected(), nil
}

func (tx *PgxTx) Query(
	query string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	tx.log.Debug().Str("sql", query).Int("params", len(params)).Msg("query")
	rows, err := tx.tx.Query(tx.ctx, query, types.Args(params)...)
	if err != nil {
		return nil, types.DatabaseErr(err)
	}
	return decodeRows(rows, typs)
}

func (tx *PgxTx) Begin() (types.Tx, error) {
	return nil, types.AlreadyInTransaction()
}

func (tx *PgxTx) Commit() error {
	if err := tx.tx.Commit(tx.ctx); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}

func (tx *PgxTx) Rollback() error {
	if err := tx.tx.Rollback(tx.ctx); err != nil {
		return types.DatabaseErr(err)
	}
	return nil
}
