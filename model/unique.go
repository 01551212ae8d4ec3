package model

import (
	"fmt"
	"strings"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
)

// Unique 一组有唯一约束的列，提供查找和校验
type Unique[M any, PK any] struct {
	table   *Table[M, PK]
	fields  []*Field[M]
	findSQL string
}

// UniqueSet 按列名声明唯一列组，未知列名直接 panic
func (t *Table[M, PK]) UniqueSet(cols ...string) *Unique[M, PK] {
	if len(cols) == 0 {
		panic("model: table " + t.Name + ": empty unique set")
	}
	u := &Unique[M, PK]{table: t}
	var conds []string
	for i, col := range cols {
		f := t.fieldByCol(col)
		if f == nil {
			panic("model: table " + t.Name + " has no column " + col)
		}
		u.fields = append(u.fields, f)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, i+1))
	}
	u.findSQL = sqlgen.Select(
		t.cols, t.Name, strings.Join(conds, " AND "), "", -1, -1,
	)
	return u
}

// FindBy 按唯一列的值查找，没找到返回 nil
func (u *Unique[M, PK]) FindBy(db types.Conn, values ...types.DbValue) *M {
	if len(values) != len(u.fields) {
		return nil
	}
	rows, err := db.Query(u.findSQL, values, u.table.dbTypes)
	if err != nil || len(rows) != 1 {
		return nil
	}
	ms, err := u.table.decodeRows(rows)
	if err != nil {
		return nil
	}
	return ms[0]
}

// FindEqual 按实例自身的唯一列值查找，任何唯一列没有值时返回 nil
func (u *Unique[M, PK]) FindEqual(db types.Conn, m *M) *M {
	values, ok := u.values(m)
	if !ok {
		return nil
	}
	return u.FindBy(db, values...)
}

// ValidateExists 不存在时返回 Database 错误，错误内容是
// msg 加上各列的值
func (u *Unique[M, PK]) ValidateExists(
	db types.Conn, msg string, values ...types.DbValue,
) error {
	if u.FindBy(db, values...) == nil {
		return u.failed(msg, values)
	}
	return nil
}

// ValidateUnique 数据库里已经有同值的行时返回 Database 错误。
// 唯一列没有值时校验通过。
func (u *Unique[M, PK]) ValidateUnique(
	db types.Conn, m *M, msg string,
) error {
	values, ok := u.values(m)
	if !ok {
		return nil
	}
	if u.FindBy(db, values...) != nil {
		return u.failed(msg, values)
	}
	return nil
}

func (u *Unique[M, PK]) values(m *M) ([]types.DbValue, bool) {
	values := make([]types.DbValue, 0, len(u.fields))
	for _, f := range u.fields {
		v, ok := f.Get(m)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func (u *Unique[M, PK]) failed(msg string, values []types.DbValue) error {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = v.String()
	}
	return types.Database(msg + ": " + strings.Join(strs, ", "))
}
