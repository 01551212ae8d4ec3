// Package model 把 Go 结构体映射到数据库表并提供持久化操作。
// 映射元数据由使用方显式写出，不做运行时反射扫描。
package model

import (
	"reflect"
	"sort"
	"strings"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
)

// Field 一个数据库列和结构体字段的对应关系。
// Opt 字段没有值时（Get 返回 false）不参与 INSERT/UPDATE，
// 缺省值由数据库生成后经 RETURNING 写回。这和 NULL 是两回事。
type Field[M any] struct {
	Col string
	Typ types.DbType
	// Pri 主键列
	Pri bool
	// Opt 可缺省列
	Opt bool
	// OrdPrio 非零时参与默认排序，数值小的优先
	OrdPrio int
	// Desc 默认排序用降序
	Desc bool
	Get  func(*M) (types.DbValue, bool)
	Set  func(*M, types.DbValue) error
}

// Table 一个模型类型的表元数据和预生成的 SQL。
// PK 是主键类型，复合主键用结构体。
type Table[M any, PK any] struct {
	Name  string
	Model string

	fields   []*Field[M]
	pkVal    func(*M) (PK, bool)
	pkParams func(PK) []types.DbValue

	cols      []string
	dbTypes   []types.DbType
	pk        []*Field[M]
	pkCols    []string
	nonPk     []*Field[M]
	nonPkCols []string
	nonPkTyps []types.DbType
	pkSelect  string
	findSQL   string
	dfltOrder string
	deps      []ownerDep
}

// NewTable 建表元数据。pkVal 从实例取主键，任何主键字段没有值时返回
// false；pkParams 把主键展开成参数，顺序和主键列的声明顺序一致。
// 元数据是静态的，不合法时直接 panic。
func NewTable[M any, PK any](
	name string,
	fields []*Field[M],
	pkVal func(*M) (PK, bool),
	pkParams func(PK) []types.DbValue,
) *Table[M, PK] {
	if name == "" {
		panic("model: table name cannot be empty")
	}
	if len(fields) == 0 {
		panic("model: table " + name + " has no fields")
	}
	t := &Table[M, PK]{
		Name:     name,
		Model:    reflect.TypeOf((*M)(nil)).Elem().Name(),
		fields:   fields,
		pkVal:    pkVal,
		pkParams: pkParams,
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if seen[f.Col] {
			panic("model: table " + name + " has duplicate column " + f.Col)
		}
		seen[f.Col] = true
		t.cols = append(t.cols, f.Col)
		t.dbTypes = append(t.dbTypes, f.Typ)
		if f.Pri {
			t.pk = append(t.pk, f)
			t.pkCols = append(t.pkCols, f.Col)
		} else {
			t.nonPk = append(t.nonPk, f)
			t.nonPkCols = append(t.nonPkCols, f.Col)
			t.nonPkTyps = append(t.nonPkTyps, f.Typ)
		}
	}
	var ordered []*Field[M]
	for _, f := range fields {
		if f.OrdPrio != 0 {
			ordered = append(ordered, f)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrdPrio < ordered[j].OrdPrio
	})
	var ord []string
	for _, f := range ordered {
		if f.Desc {
			ord = append(ord, f.Col+" DESC")
		} else {
			ord = append(ord, f.Col)
		}
	}
	t.dfltOrder = strings.Join(ord, ", ")
	t.pkSelect = sqlgen.PkSelect(t.pkCols)
	t.findSQL = sqlgen.Select(t.cols, t.Name, t.pkSelect, "", -1, -1)
	return t
}

// Cols 全部列名，声明顺序
func (t *Table[M, PK]) Cols() []string { return t.cols }

// PkCols 主键列名
func (t *Table[M, PK]) PkCols() []string { return t.pkCols }

// DefaultOrder 默认 ORDER 子句内容，没有时为空串
func (t *Table[M, PK]) DefaultOrder() string { return t.dfltOrder }

// PkValue 从实例取主键
func (t *Table[M, PK]) PkValue(m *M) (PK, bool) { return t.pkVal(m) }

func (t *Table[M, PK]) fieldByCol(col string) *Field[M] {
	for _, f := range t.fields {
		if f.Col == col {
			return f
		}
	}
	return nil
}

// decodeRows 把查询结果解码成模型。任何一行解码失败整批失败。
func (t *Table[M, PK]) decodeRows(rows [][]types.DbValue) ([]*M, error) {
	out := make([]*M, 0, len(rows))
	for _, row := range rows {
		m := new(M)
		for i, f := range t.fields {
			if err := f.Set(m, row[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// Find 按主键查找，没找到或无法解码时返回 nil
func (t *Table[M, PK]) Find(db types.Conn, pk PK) *M {
	if len(t.pk) == 0 {
		return nil
	}
	rows, err := db.Query(t.findSQL, t.pkParams(pk), t.dbTypes)
	if err != nil || len(rows) != 1 {
		return nil
	}
	ms, err := t.decodeRows(rows)
	if err != nil {
		return nil
	}
	return ms[0]
}

// FindEqual 按实例自身的主键查找，主键没有值时返回 nil
func (t *Table[M, PK]) FindEqual(db types.Conn, m *M) *M {
	pk, ok := t.pkVal(m)
	if !ok {
		return nil
	}
	return t.Find(db, pk)
}

// Load 按默认排序取全部行
func (t *Table[M, PK]) Load(db types.Conn) ([]*M, error) {
	sql := sqlgen.Select(t.cols, t.Name, "", t.dfltOrder, -1, -1)
	rows, err := db.Query(sql, nil, t.dbTypes)
	if err != nil {
		return nil, err
	}
	return t.decodeRows(rows)
}

// Query 执行构建好的查询。查询里有未绑定的占位符时返回 InvalidInput。
func (t *Table[M, PK]) Query(db types.Conn, q *types.Query) ([]*M, error) {
	values := make([]types.DbValue, len(q.Values))
	for i, v := range q.Values {
		if v == nil {
			return nil, types.InvalidInput("value is None")
		}
		values[i] = *v
	}
	order := ""
	switch {
	case q.Order.Dflt():
		order = t.dfltOrder
	case q.Order.None():
	default:
		order, _ = q.Order.Custom()
	}
	sql := sqlgen.Select(t.cols, t.Name, q.Filter, order, q.Limit, q.Offset)
	rows, err := db.Query(sql, values, t.dbTypes)
	if err != nil {
		return nil, err
	}
	return t.decodeRows(rows)
}
