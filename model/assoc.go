package model

import (
	"fmt"

	"github.com/Kaguya154/vicocomo/sqlgen"
	"github.com/Kaguya154/vicocomo/types"
)

// BelongsTo 一对多关系的「多」侧：本地表有一个外键列指向远端表的
// 单列主键
type BelongsTo[M any, PK any, R any, RPK any] struct {
	local  *Table[M, PK]
	remote *Table[R, RPK]
	fkCol  string
	fkGet  func(*M) (RPK, bool)
	fkSet  func(*M, RPK)
	// fkClear 为 nil 时外键不可空，Forget 不可用
	fkClear func(*M)
}

// NewBelongsTo 声明 belongs-to 关联。fkGet 读外键，没有值（NULL 或
// 未设置）时返回 false。远端主键必须是单列。
func NewBelongsTo[M any, PK any, R any, RPK any](
	local *Table[M, PK],
	remote *Table[R, RPK],
	fkCol string,
	fkGet func(*M) (RPK, bool),
	fkSet func(*M, RPK),
	fkClear func(*M),
) *BelongsTo[M, PK, R, RPK] {
	if len(remote.pkCols) != 1 {
		panic("model: belongs-to remote " + remote.Name +
			" must have a single primary key column")
	}
	if local.fieldByCol(fkCol) == nil {
		panic("model: table " + local.Name + " has no column " + fkCol)
	}
	return &BelongsTo[M, PK, R, RPK]{
		local:   local,
		remote:  remote,
		fkCol:   fkCol,
		fkGet:   fkGet,
		fkSet:   fkSet,
		fkClear: fkClear,
	}
}

// Get 取外键指向的远端实例，外键没有值或行不存在时返回 nil
func (a *BelongsTo[M, PK, R, RPK]) Get(db types.Conn, m *M) *R {
	rpk, ok := a.fkGet(m)
	if !ok {
		return nil
	}
	return a.remote.Find(db, rpk)
}

// Set 把外键指向 r，只改内存，不访问数据库。r 还没有主键时
// 返回 InvalidInput。
func (a *BelongsTo[M, PK, R, RPK]) Set(m *M, r *R) error {
	rpk, ok := a.remote.pkVal(r)
	if !ok {
		return types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", a.remote.Model, a.remote.pkCols[0],
		))
	}
	a.fkSet(m, rpk)
	return nil
}

// Forget 清掉可空外键，只改内存。外键不可空时返回 InvalidInput。
func (a *BelongsTo[M, PK, R, RPK]) Forget(m *M) error {
	if a.fkClear == nil {
		return types.InvalidInput(fmt.Sprintf(
			"%s.%s is not nullable", a.local.Model, a.fkCol,
		))
	}
	a.fkClear(m)
	return nil
}

// Siblings 外键指向同一远端实例的所有本地行，包括 m 自己。
// m 的外键没有值时返回 InvalidInput。
func (a *BelongsTo[M, PK, R, RPK]) Siblings(db types.Conn, m *M) ([]*M, error) {
	rpk, ok := a.fkGet(m)
	if !ok {
		return nil, types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", a.local.Model, a.fkCol,
		))
	}
	return a.belongingTo(db, rpk)
}

// AllBelongingTo 外键指向 r 的所有本地行。r 还没有主键时返回
// InvalidInput。
func (a *BelongsTo[M, PK, R, RPK]) AllBelongingTo(
	db types.Conn, r *R,
) ([]*M, error) {
	rpk, ok := a.remote.pkVal(r)
	if !ok {
		return nil, types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", a.remote.Model, a.remote.pkCols[0],
		))
	}
	return a.belongingTo(db, rpk)
}

func (a *BelongsTo[M, PK, R, RPK]) belongingTo(
	db types.Conn, rpk RPK,
) ([]*M, error) {
	v := a.remote.pkParams(rpk)[0]
	q := types.NewQuery().
		Filter(a.fkCol+" = $1", []*types.DbValue{&v}).
		Query()
	return a.local.Query(db, q)
}

// OnDelete 删除宿主时对从属行的处理策略
type OnDelete int

const (
	// Restrict 有从属行时拒绝删除
	Restrict OnDelete = iota
	// Cascade 连同从属行一起删除
	Cascade
	// Forget 把从属行的外键置 NULL
	Forget
)

type manyJoin struct {
	table string
	// fkCol 指向本地主键的列
	fkCol string
	// remoteFkCol 指向远端主键的列
	remoteFkCol string
}

// HasMany 一对多关系的「一」侧，也支持经由连接表的多对多。
// 本地主键必须是单列。
type HasMany[M any, PK any, R any, RPK any] struct {
	local    *Table[M, PK]
	remote   *Table[R, RPK]
	fkCol    string
	onDelete OnDelete
	join     *manyJoin
}

// NewHasMany 声明一对多关联，fkCol 是远端表里指向本地主键的列。
// 注册之后本地 Delete/DeleteBatch 会按 onDelete 处理远端行。
func NewHasMany[M any, PK any, R any, RPK any](
	local *Table[M, PK],
	remote *Table[R, RPK],
	fkCol string,
	onDelete OnDelete,
) *HasMany[M, PK, R, RPK] {
	if len(local.pkCols) != 1 {
		panic("model: has-many owner " + local.Name +
			" must have a single primary key column")
	}
	if remote.fieldByCol(fkCol) == nil {
		panic("model: table " + remote.Name + " has no column " + fkCol)
	}
	a := &HasMany[M, PK, R, RPK]{
		local:    local,
		remote:   remote,
		fkCol:    fkCol,
		onDelete: onDelete,
	}
	local.deps = append(local.deps, a)
	return a
}

// NewManyToMany 声明经由连接表的多对多关联。joinFkCol 指向本地主键,
// joinRemoteFkCol 指向远端主键。删除本地行时连接行一并删除。
func NewManyToMany[M any, PK any, R any, RPK any](
	local *Table[M, PK],
	remote *Table[R, RPK],
	joinTable string,
	joinFkCol string,
	joinRemoteFkCol string,
) *HasMany[M, PK, R, RPK] {
	if len(local.pkCols) != 1 {
		panic("model: has-many owner " + local.Name +
			" must have a single primary key column")
	}
	if len(remote.pkCols) != 1 {
		panic("model: many-to-many remote " + remote.Name +
			" must have a single primary key column")
	}
	a := &HasMany[M, PK, R, RPK]{
		local:  local,
		remote: remote,
		join: &manyJoin{
			table:       joinTable,
			fkCol:       joinFkCol,
			remoteFkCol: joinRemoteFkCol,
		},
	}
	local.deps = append(local.deps, a)
	return a
}

// Remotes 取 m 的全部远端行。q 不为 nil 时在其基础上加关联条件，
// q 自带的占位符会被重新编号。
func (a *HasMany[M, PK, R, RPK]) Remotes(
	db types.Conn, m *M, q *types.Query,
) ([]*R, error) {
	pkv, err := a.ownerPk(m)
	if err != nil {
		return nil, err
	}
	var bld *types.QueryBld
	if q != nil {
		bld = q.Builder()
	} else {
		bld = types.NewQuery()
	}
	full := bld.Filter(a.filter(), []*types.DbValue{&pkv}).Query()
	if full == nil {
		return nil, types.InvalidInput("invalid query")
	}
	return a.remote.Query(db, full)
}

// ConnectTo 在连接表里加一行把 m 和 r 连起来，重复连接由连接表的
// 唯一约束拒绝。只适用于多对多。
func (a *HasMany[M, PK, R, RPK]) ConnectTo(
	db types.Conn, m *M, r *R,
) (int64, error) {
	vals, err := a.joinVals(m, r)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES ($1, $2)",
		a.join.table, a.join.fkCol, a.join.remoteFkCol,
	)
	return db.Exec(sql, vals)
}

// DisconnectFrom 删除 m 和 r 之间的连接行，返回 0 或 1，
// 本来就没连接不算错误。只适用于多对多。
func (a *HasMany[M, PK, R, RPK]) DisconnectFrom(
	db types.Conn, m *M, r *R,
) (int64, error) {
	vals, err := a.joinVals(m, r)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = $1 AND %s = $2",
		a.join.table, a.join.fkCol, a.join.remoteFkCol,
	)
	return db.Exec(sql, vals)
}

func (a *HasMany[M, PK, R, RPK]) filter() string {
	if a.join != nil {
		return fmt.Sprintf(
			"%s IN (SELECT %s FROM %s WHERE %s = $1)",
			a.remote.pkCols[0],
			a.join.remoteFkCol,
			a.join.table,
			a.join.fkCol,
		)
	}
	return a.fkCol + " = $1"
}

func (a *HasMany[M, PK, R, RPK]) ownerPk(m *M) (types.DbValue, error) {
	pk, ok := a.local.pkVal(m)
	if !ok {
		return types.DbValue{}, types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", a.local.Model, a.local.pkCols[0],
		))
	}
	return a.local.pkParams(pk)[0], nil
}

func (a *HasMany[M, PK, R, RPK]) joinVals(
	m *M, r *R,
) ([]types.DbValue, error) {
	if a.join == nil {
		return nil, types.Other(fmt.Sprintf(
			"%s and %s are not connected by a join table",
			a.local.Model, a.remote.Model,
		))
	}
	pkv, err := a.ownerPk(m)
	if err != nil {
		return nil, err
	}
	rpk, ok := a.remote.pkVal(r)
	if !ok {
		return nil, types.InvalidInput(fmt.Sprintf(
			"%s.%s is None", a.remote.Model, a.remote.pkCols[0],
		))
	}
	return []types.DbValue{pkv, a.remote.pkParams(rpk)[0]}, nil
}

// beforeOwnerDelete 按删除策略处理从属行，多对多只清连接行
func (a *HasMany[M, PK, R, RPK]) beforeOwnerDelete(
	db types.Conn, ownerPk types.DbValue,
) error {
	params := []types.DbValue{ownerPk}
	if a.join != nil {
		_, err := db.Exec(
			sqlgen.Delete(a.join.table, a.join.fkCol+" = $1"), params,
		)
		return err
	}
	switch a.onDelete {
	case Restrict:
		fkf := a.remote.fieldByCol(a.fkCol)
		rows, err := db.Query(
			sqlgen.Select(
				[]string{a.fkCol}, a.remote.Name, a.fkCol+" = $1",
				"", 1, -1,
			),
			params,
			[]types.DbType{fkf.Typ},
		)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return types.Database(fmt.Sprintf(
				"%s restricted by %s", a.local.Model, a.remote.Model,
			))
		}
		return nil
	case Cascade:
		_, err := db.Exec(
			sqlgen.Delete(a.remote.Name, a.fkCol+" = $1"), params,
		)
		return err
	case Forget:
		_, err := db.Exec(
			fmt.Sprintf(
				"UPDATE %s SET %s = NULL WHERE %s = $1",
				a.remote.Name, a.fkCol, a.fkCol,
			),
			params,
		)
		return err
	}
	return nil
}
