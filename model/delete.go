package model

import (
	"fmt"
	"strings"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
)

// ownerDep 删除宿主行之前要处理的从属数据，由 has-many 关联注册
type ownerDep interface {
	beforeOwnerDelete(db types.Conn, ownerPk types.DbValue) error
}

// Delete 删除 m 对应的行。已注册的 has-many 关联先按各自的删除
// 策略处理从属行，之后必须恰好删掉一行。
func (t *Table[M, PK]) Delete(db types.Conn, m *M) error {
	pk, ok := t.pkVal(m)
	if !ok {
		return types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", t.Model, strings.Join(t.pkCols, ", "),
		))
	}
	params := t.pkParams(pk)
	for _, dep := range t.deps {
		if err := dep.beforeOwnerDelete(db, params[0]); err != nil {
			return err
		}
	}
	deleted, err := db.Exec(sqlgen.Delete(t.Name, t.pkSelect), params)
	if err != nil {
		return err
	}
	if deleted != 1 {
		return types.Database(fmt.Sprintf(
			"delete %d records, expected 1", deleted,
		))
	}
	return nil
}

// DeleteBatch 按主键批量删除，返回实际删除的行数，
// 少于 len(pks) 不算错误
func (t *Table[M, PK]) DeleteBatch(db types.Conn, pks []PK) (int64, error) {
	if len(pks) == 0 {
		return 0, nil
	}
	params := make([]types.DbValue, 0, len(pks)*len(t.pkCols))
	for _, pk := range pks {
		params = append(params, t.pkParams(pk)...)
	}
	for _, dep := range t.deps {
		for i := range pks {
			err := dep.beforeOwnerDelete(db, params[i*len(t.pkCols)])
			if err != nil {
				return 0, err
			}
		}
	}
	var where string
	if len(t.pkCols) > 1 {
		where = fmt.Sprintf(
			"(%s) IN (%s)",
			strings.Join(t.pkCols, ", "),
			sqlgen.PkTuples(len(pks), len(t.pkCols)),
		)
	} else {
		where = fmt.Sprintf(
			"%s IN (%s)", t.pkCols[0], sqlgen.PkTuples(len(pks), 1),
		)
	}
	return db.Exec(sqlgen.Delete(t.Name, where), params)
}
