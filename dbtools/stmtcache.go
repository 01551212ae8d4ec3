package dbtools

import (
	"fmt"
	"sync"

	"github.com/Kaguya154/vicocomo/types"
)

var globalStmtCache sync.Map

// SetStmtCache 缓存生成好的 SQL。shape 描述语句形状，
// 比如插入的列集合加行数。
func SetStmtCache(table string, op types.OpType, shape string, sql string) {
	globalStmtCache.Store(MakeStmtCacheKey(table, op, shape), sql)
}

// GetStmtCache 取缓存的 SQL
func GetStmtCache(table string, op types.OpType, shape string) (string, bool) {
	val, ok := globalStmtCache.Load(MakeStmtCacheKey(table, op, shape))
	if !ok {
		return "", false
	}
	return val.(string), true
}

// MakeStmtCacheKey 生成缓存键
func MakeStmtCacheKey(table string, op types.OpType, shape string) string {
	return fmt.Sprintf("%s:%s:%s", table, op.String(), shape)
}
