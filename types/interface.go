package types

// Conn 数据库连接。SQL 使用 $1..$n 占位符，按参数顺序从 1 连续编号，
// 驱动可以在内部改写为 ? 形式。
type Conn interface {
	// Exec 执行语句，返回受影响行数
	Exec(sql string, params []DbValue) (int64, error)
	// Query 执行查询，按 types 逐列解码。len(types) 必须等于结果列数。
	Query(sql string, params []DbValue, types []DbType) ([][]DbValue, error)
	// Begin 开启事务
	Begin() (Tx, error)
	// Commit 非事务连接返回 "not in a transaction"
	Commit() error
	// Rollback 非事务连接返回 "not in a transaction"
	Rollback() error
}

// Tx 事务句柄，Commit/Rollback 之后不可再用
type Tx interface {
	Conn
}

// Driver 数据库驱动
type Driver interface {
	Open(cfg DBConfig) (Conn, error)
	Quote(identifier string) string
	Placeholder(n int) string
}

// NotInTransaction 普通连接上调用 Commit/Rollback 的错误
func NotInTransaction() *Error {
	return Database("not in a transaction")
}

// AlreadyInTransaction 事务内再次 Begin 的错误
func AlreadyInTransaction() *Error {
	return Database("already in a transaction")
}
