package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kaguya154/vicocomo/dbtools"
	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
)

// Insert 插入一行并用数据库返回的行更新 m，数据库生成的缺省值
// （比如自增主键）也会写回
func (t *Table[M, PK]) Insert(db types.Conn, m *M) error {
	inserted, err := t.InsertBatch(db, []*M{m})
	if err != nil {
		return err
	}
	*m = *inserted[0]
	return nil
}

// InsertBatch 批量插入。行按「有值的列集合」分组，每组发一条多行
// INSERT，可缺省列没有值时整个不出现在语句里，不等于插 NULL。
// 返回的模型来自 RETURNING，组间顺序按列集合首次出现的顺序。
func (t *Table[M, PK]) InsertBatch(db types.Conn, ms []*M) ([]*M, error) {
	type group struct {
		cols []string
		rows [][]types.DbValue
	}
	var keys []string
	groups := map[string]*group{}
	for _, m := range ms {
		var cols []string
		var vals []types.DbValue
		for _, f := range t.fields {
			v, ok := f.Get(m)
			if !ok {
				continue
			}
			cols = append(cols, f.Col)
			vals = append(vals, v)
		}
		key := strings.Join(cols, ",")
		g, ok := groups[key]
		if !ok {
			g = &group{cols: cols}
			groups[key] = g
			keys = append(keys, key)
		}
		g.rows = append(g.rows, vals)
	}
	out := make([]*M, 0, len(ms))
	for _, key := range keys {
		g := groups[key]
		shape := key + ":" + strconv.Itoa(len(g.rows))
		sql, ok := dbtools.GetStmtCache(t.Name, types.OpInsert, shape)
		if !ok {
			sql = sqlgen.Insert(t.Name, g.cols, len(g.rows), t.cols)
			dbtools.SetStmtCache(t.Name, types.OpInsert, shape, sql)
		}
		params := make([]types.DbValue, 0, len(g.rows)*len(g.cols))
		for _, row := range g.rows {
			params = append(params, row...)
		}
		rows, err := db.Query(sql, params, t.dbTypes)
		if err != nil {
			return nil, err
		}
		decoded, err := t.decodeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// Update 按主键更新所有有值的非主键列。参数向量里主键值在前，
// 更新必须恰好命中一行，之后用 RETURNING 的值更新 m。
func (t *Table[M, PK]) Update(db types.Conn, m *M) error {
	var cols []ColVal
	for _, f := range t.nonPk {
		v, ok := f.Get(m)
		if !ok {
			continue
		}
		cols = append(cols, ColVal{Col: f.Col, Val: v})
	}
	return t.UpdateColumns(db, m, cols)
}

// ColVal 一个列名和要写入的值
type ColVal struct {
	Col string
	Val types.DbValue
}

// UpdateColumns 按主键更新指定的列，成功后 m 的全部非主键字段
// 用数据库当前值刷新
func (t *Table[M, PK]) UpdateColumns(db types.Conn, m *M, cols []ColVal) error {
	pk, ok := t.pkVal(m)
	if !ok {
		return types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", t.Model, strings.Join(t.pkCols, ", "),
		))
	}
	params := t.pkParams(pk)
	setCols := make([]string, 0, len(cols))
	for _, cv := range cols {
		if t.fieldByCol(cv.Col) == nil {
			return types.InvalidInput(fmt.Sprintf(
				"%s has no column %s", t.Name, cv.Col,
			))
		}
		setCols = append(setCols, cv.Col)
		params = append(params, cv.Val)
	}
	shape := strings.Join(setCols, ",")
	sql, ok := dbtools.GetStmtCache(t.Name, types.OpUpdate, shape)
	if !ok {
		sql = sqlgen.Update(
			t.Name, setCols, len(t.pkCols)+1, t.pkSelect, t.nonPkCols,
		)
		dbtools.SetStmtCache(t.Name, types.OpUpdate, shape, sql)
	}
	rows, err := db.Query(sql, params, t.nonPkTyps)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return types.Database(fmt.Sprintf(
			"update %d records, expected 1", len(rows),
		))
	}
	for i, f := range t.nonPk {
		if err := f.Set(m, rows[0][i]); err != nil {
			return err
		}
	}
	return nil
}

// Save 有对应行就更新，没有就插入
func (t *Table[M, PK]) Save(db types.Conn, m *M) error {
	if err := t.Update(db, m); err != nil {
		return t.Insert(db, m)
	}
	return nil
}
