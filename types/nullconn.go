package types

// NullConn 没有数据库时的占位连接，所有操作都返回错误
type NullConn struct{}

func noDatabase() *Error { return Database("no database") }

func (NullConn) Exec(string, []DbValue) (int64, error) { return 0, noDatabase() }

func (NullConn) Query(string, []DbValue, []DbType) ([][]DbValue, error) {
	return nil, noDatabase()
}

func (NullConn) Begin() (Tx, error) { return nil, noDatabase() }
func (NullConn) Commit() error      { return noDatabase() }
func (NullConn) Rollback() error    { return noDatabase() }
