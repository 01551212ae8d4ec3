package model_test

import (
	"testing"

	"github.com/Kaguya154/vicocomo/model"
	"github.com/Kaguya154/vicocomo/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn 记录收到的 SQL 和参数，按脚本返回结果
type call struct {
	sql    string
	params []types.DbValue
	typs   []types.DbType
}

type stubConn struct {
	queries  []call
	execs    []call
	rows     [][][]types.DbValue
	queryErr error
	affected []int64
	execErr  error
}

func (c *stubConn) Query(
	sql string, params []types.DbValue, typs []types.DbType,
) ([][]types.DbValue, error) {
	c.queries = append(c.queries, call{sql: sql, params: params, typs: typs})
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if len(c.rows) == 0 {
		return nil, nil
	}
	r := c.rows[0]
	c.rows = c.rows[1:]
	return r, nil
}

func (c *stubConn) Exec(sql string, params []types.DbValue) (int64, error) {
	c.execs = append(c.execs, call{sql: sql, params: params})
	if c.execErr != nil {
		return 0, c.execErr
	}
	if len(c.affected) == 0 {
		return 0, nil
	}
	n := c.affected[0]
	c.affected = c.affected[1:]
	return n, nil
}

func (c *stubConn) Begin() (types.Tx, error) {
	return nil, types.Database("stub does not support transactions")
}

func (c *stubConn) Commit() error { return types.NotInTransaction() }

func (c *stubConn) Rollback() error { return types.NotInTransaction() }

type Person struct {
	ID   *int64
	Name string
	Age  *int64
}

func intPtr(i int64) *int64 { return &i }

var personTable = model.NewTable(
	"persons",
	[]*model.Field[Person]{
		{
			Col: "id", Typ: types.DbInt, Pri: true, Opt: true,
			Get: func(p *Person) (types.DbValue, bool) {
				if p.ID == nil {
					return types.DbValue{}, false
				}
				return types.Int(*p.ID), true
			},
			Set: func(p *Person, v types.DbValue) error {
				i, err := v.AsInt()
				if err != nil {
					return err
				}
				p.ID = &i
				return nil
			},
		},
		{
			Col: "name", Typ: types.DbText, OrdPrio: 1,
			Get: func(p *Person) (types.DbValue, bool) {
				return types.Text(p.Name), true
			},
			Set: func(p *Person, v types.DbValue) error {
				s, err := v.AsText()
				if err != nil {
					return err
				}
				p.Name = s
				return nil
			},
		},
		{
			Col: "age", Typ: types.DbNulInt,
			Get: func(p *Person) (types.DbValue, bool) {
				return types.NulInt(p.Age), true
			},
			Set: func(p *Person, v types.DbValue) error {
				i, err := v.AsNulInt()
				if err != nil {
					return err
				}
				p.Age = i
				return nil
			},
		},
	},
	func(p *Person) (int64, bool) {
		if p.ID == nil {
			return 0, false
		}
		return *p.ID, true
	},
	func(pk int64) []types.DbValue {
		return []types.DbValue{types.Int(pk)}
	},
)

var personByName = personTable.UniqueSet("name")

func TestFind(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(17), types.Text("Tom"), types.NulInt(intPtr(42))},
	}}}
	p := personTable.Find(db, 17)
	require.NotNil(t, p)
	assert.Equal(t, int64(17), *p.ID)
	assert.Equal(t, "Tom", p.Name)
	require.NotNil(t, p.Age)
	assert.Equal(t, int64(42), *p.Age)
	require.Len(t, db.queries, 1)
	assert.Equal(
		t,
		"SELECT id, name, age FROM persons WHERE id = $1",
		db.queries[0].sql,
	)
	assert.Equal(t, []types.DbValue{types.Int(17)}, db.queries[0].params)
}

func TestFindNotFound(t *testing.T) {
	db := &stubConn{}
	assert.Nil(t, personTable.Find(db, 17))
}

func TestFindEqual(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(17), types.Text("Tom"), types.NulInt(nil)},
	}}}
	assert.Nil(t, personTable.FindEqual(db, &Person{Name: "unsaved"}))
	p := personTable.FindEqual(db, &Person{ID: intPtr(17)})
	require.NotNil(t, p)
	assert.Nil(t, p.Age)
}

func TestLoadUsesDefaultOrder(t *testing.T) {
	db := &stubConn{}
	_, err := personTable.Load(db)
	require.NoError(t, err)
	require.Len(t, db.queries, 1)
	assert.Equal(
		t,
		"SELECT id, name, age FROM persons ORDER BY name",
		db.queries[0].sql,
	)
}

func TestQuery(t *testing.T) {
	db := &stubConn{}
	v := types.Int(30)
	q := types.NewQuery().Col("age").Gt(&v).Limit(10).Offset(5).Query()
	require.NotNil(t, q)
	_, err := personTable.Query(db, q)
	require.NoError(t, err)
	assert.Equal(
		t,
		"SELECT id, name, age FROM persons WHERE age > $1"+
			" ORDER BY name LIMIT 10 OFFSET 5",
		db.queries[0].sql,
	)
	assert.Equal(t, []types.DbValue{types.Int(30)}, db.queries[0].params)
}

func TestQueryCustomAndNoOrder(t *testing.T) {
	db := &stubConn{}
	q := types.NewQuery().Order("age DESC").Query()
	_, err := personTable.Query(db, q)
	require.NoError(t, err)
	assert.Equal(
		t,
		"SELECT id, name, age FROM persons ORDER BY age DESC",
		db.queries[0].sql,
	)

	q = types.NewQuery().NoOrder().Query()
	_, err = personTable.Query(db, q)
	require.NoError(t, err)
	assert.Equal(
		t, "SELECT id, name, age FROM persons", db.queries[1].sql,
	)
}

func TestQueryUnboundValue(t *testing.T) {
	db := &stubConn{}
	q := types.NewQuery().Col("age").Gt(nil).Query()
	require.NotNil(t, q)
	_, err := personTable.Query(db, q)
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	assert.Contains(t, err.Error(), "value is None")
	assert.Empty(t, db.queries)
}

func TestInsertReturnsDefaults(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(1), types.Text("Tom"), types.NulInt(nil)},
	}}}
	p := &Person{Name: "Tom"}
	require.NoError(t, personTable.Insert(db, p))
	require.Len(t, db.queries, 1)
	assert.Equal(
		t,
		"INSERT INTO persons (name, age) VALUES ($1, $2)"+
			" RETURNING id, name, age",
		db.queries[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{types.Text("Tom"), types.NulInt(nil)},
		db.queries[0].params,
	)
	require.NotNil(t, p.ID)
	assert.Equal(t, int64(1), *p.ID)
}

func TestInsertBatchGroupsByPresentColumns(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{
		{
			{types.Int(1), types.Text("a"), types.NulInt(nil)},
			{types.Int(2), types.Text("b"), types.NulInt(nil)},
		},
		{
			{types.Int(9), types.Text("c"), types.NulInt(nil)},
		},
	}}
	out, err := personTable.InsertBatch(db, []*Person{
		{Name: "a"},
		{Name: "b"},
		{ID: intPtr(9), Name: "c"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Len(t, db.queries, 2)
	assert.Equal(
		t,
		"INSERT INTO persons (name, age) VALUES ($1, $2), ($3, $4)"+
			" RETURNING id, name, age",
		db.queries[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{
			types.Text("a"), types.NulInt(nil),
			types.Text("b"), types.NulInt(nil),
		},
		db.queries[0].params,
	)
	assert.Equal(
		t,
		"INSERT INTO persons (id, name, age) VALUES ($1, $2, $3)"+
			" RETURNING id, name, age",
		db.queries[1].sql,
	)
}

func TestUpdate(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Text("Tom"), types.NulInt(intPtr(43))},
	}}}
	p := &Person{ID: intPtr(17), Name: "Tom", Age: intPtr(42)}
	require.NoError(t, personTable.Update(db, p))
	require.Len(t, db.queries, 1)
	assert.Equal(
		t,
		"UPDATE persons SET name = $2, age = $3 WHERE id = $1"+
			" RETURNING name, age",
		db.queries[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{
			types.Int(17), types.Text("Tom"), types.NulInt(intPtr(42)),
		},
		db.queries[0].params,
	)
	// RETURNING 的值写回
	assert.Equal(t, int64(43), *p.Age)
}

func TestUpdateMissingRow(t *testing.T) {
	db := &stubConn{}
	p := &Person{ID: intPtr(17), Name: "Tom"}
	err := personTable.Update(db, p)
	require.Error(t, err)
	assert.Equal(t, types.KindDatabase, types.KindOf(err))
	assert.Contains(t, err.Error(), "update 0 records, expected 1")
}

func TestUpdateWithoutPk(t *testing.T) {
	db := &stubConn{}
	err := personTable.Update(db, &Person{Name: "Tom"})
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	assert.Contains(t, err.Error(), "Person.id is None")
}

func TestUpdateColumns(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Text("Tom"), types.NulInt(nil)},
	}}}
	p := &Person{ID: intPtr(17), Name: "old", Age: intPtr(1)}
	err := personTable.UpdateColumns(db, p, []model.ColVal{
		{Col: "age", Val: types.NulInt(nil)},
	})
	require.NoError(t, err)
	assert.Equal(
		t,
		"UPDATE persons SET age = $2 WHERE id = $1 RETURNING name, age",
		db.queries[0].sql,
	)
	assert.Equal(t, "Tom", p.Name)
	assert.Nil(t, p.Age)
}

func TestSaveFallsBackToInsert(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{
		{}, // update 命中 0 行
		{{types.Int(5), types.Text("Tom"), types.NulInt(nil)}},
	}}
	p := &Person{ID: intPtr(5), Name: "Tom"}
	require.NoError(t, personTable.Save(db, p))
	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[1].sql, "INSERT INTO persons")
}

func TestDelete(t *testing.T) {
	db := &stubConn{affected: []int64{1}}
	p := &Person{ID: intPtr(17), Name: "Tom"}
	require.NoError(t, personTable.Delete(db, p))
	require.Len(t, db.execs, 1)
	assert.Equal(
		t, "DELETE FROM persons WHERE id = $1", db.execs[0].sql,
	)
}

func TestDeleteMissingRow(t *testing.T) {
	db := &stubConn{affected: []int64{0}}
	err := personTable.Delete(db, &Person{ID: intPtr(17)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete 0 records, expected 1")
}

func TestDeleteBatch(t *testing.T) {
	db := &stubConn{affected: []int64{2}}
	n, err := personTable.DeleteBatch(db, []int64{17, 18, 19})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(
		t,
		"DELETE FROM persons WHERE id IN ($1, $2, $3)",
		db.execs[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{types.Int(17), types.Int(18), types.Int(19)},
		db.execs[0].params,
	)
}

func TestDeleteBatchEmpty(t *testing.T) {
	db := &stubConn{}
	n, err := personTable.DeleteBatch(db, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, db.execs)
}

func TestUniqueFindBy(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(17), types.Text("Tom"), types.NulInt(nil)},
	}}}
	p := personByName.FindBy(db, types.Text("Tom"))
	require.NotNil(t, p)
	assert.Equal(
		t,
		"SELECT id, name, age FROM persons WHERE name = $1",
		db.queries[0].sql,
	)
}

func TestValidateUnique(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(17), types.Text("Tom"), types.NulInt(nil)},
	}}}
	err := personByName.ValidateUnique(
		db, &Person{Name: "Tom"}, "name taken",
	)
	require.Error(t, err)
	assert.Equal(t, types.KindDatabase, types.KindOf(err))
	assert.Equal(t, `database: name taken: Text("Tom")`, err.Error())

	require.NoError(t, personByName.ValidateUnique(
		&stubConn{}, &Person{Name: "Bob"}, "name taken",
	))
}

func TestValidateExists(t *testing.T) {
	err := personByName.ValidateExists(
		&stubConn{}, "no such person", types.Text("Tom"),
	)
	require.Error(t, err)
	assert.Equal(
		t, `database: no such person: Text("Tom")`, err.Error(),
	)

	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(17), types.Text("Tom"), types.NulInt(nil)},
	}}}
	require.NoError(t, personByName.ValidateExists(
		db, "no such person", types.Text("Tom"),
	))
}

// 复合主键
type Entry struct {
	Day  int64
	Slot int64
	Note string
}

type entryKey struct {
	Day  int64
	Slot int64
}

var entryTable = model.NewTable(
	"entries",
	[]*model.Field[Entry]{
		{
			Col: "day", Typ: types.DbInt, Pri: true,
			Get: func(e *Entry) (types.DbValue, bool) {
				return types.Int(e.Day), true
			},
			Set: func(e *Entry, v types.DbValue) error {
				i, err := v.AsInt()
				e.Day = i
				return err
			},
		},
		{
			Col: "slot", Typ: types.DbInt, Pri: true,
			Get: func(e *Entry) (types.DbValue, bool) {
				return types.Int(e.Slot), true
			},
			Set: func(e *Entry, v types.DbValue) error {
				i, err := v.AsInt()
				e.Slot = i
				return err
			},
		},
		{
			Col: "note", Typ: types.DbText,
			Get: func(e *Entry) (types.DbValue, bool) {
				return types.Text(e.Note), true
			},
			Set: func(e *Entry, v types.DbValue) error {
				s, err := v.AsText()
				e.Note = s
				return err
			},
		},
	},
	func(e *Entry) (entryKey, bool) {
		return entryKey{Day: e.Day, Slot: e.Slot}, true
	},
	func(pk entryKey) []types.DbValue {
		return []types.DbValue{types.Int(pk.Day), types.Int(pk.Slot)}
	},
)

func TestCompositePkFind(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Int(1), types.Int(2), types.Text("x")},
	}}}
	e := entryTable.Find(db, entryKey{Day: 1, Slot: 2})
	require.NotNil(t, e)
	assert.Equal(
		t,
		"SELECT day, slot, note FROM entries"+
			" WHERE day = $1 AND slot = $2",
		db.queries[0].sql,
	)
}

func TestCompositePkUpdateParamOrder(t *testing.T) {
	db := &stubConn{rows: [][][]types.DbValue{{
		{types.Text("y")},
	}}}
	e := &Entry{Day: 1, Slot: 2, Note: "y"}
	require.NoError(t, entryTable.Update(db, e))
	// 主键参数在前，SET 的值接着编号
	assert.Equal(
		t,
		"UPDATE entries SET note = $3 WHERE day = $1 AND slot = $2"+
			" RETURNING note",
		db.queries[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{types.Int(1), types.Int(2), types.Text("y")},
		db.queries[0].params,
	)
}

func TestCompositePkDeleteBatch(t *testing.T) {
	db := &stubConn{affected: []int64{2}}
	n, err := entryTable.DeleteBatch(db, []entryKey{
		{Day: 1, Slot: 2}, {Day: 3, Slot: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(
		t,
		"DELETE FROM entries WHERE (day, slot)"+
			" IN (($1, $2), ($3, $4))",
		db.execs[0].sql,
	)
	assert.Equal(
		t,
		[]types.DbValue{
			types.Int(1), types.Int(2), types.Int(3), types.Int(4),
		},
		db.execs[0].params,
	)
}
