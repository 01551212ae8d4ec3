package vicocomo

import (
	"fmt"
	"sync"

	"github.com/Kaguya154/vicocomo/types"
)

// 驱动注册表
var (
	registeredDriversMu sync.RWMutex
	registeredDrivers   = make(map[string]types.Driver)
)

// RegisterDriver 注册数据库驱动
func RegisterDriver(name string, drv types.Driver) error {
	registeredDriversMu.Lock()
	defer registeredDriversMu.Unlock()

	if name == "" {
		return types.InvalidInput("driver name cannot be empty")
	}
	if drv == nil {
		return types.InvalidInput("driver cannot be nil")
	}
	if _, exists := registeredDrivers[name]; exists {
		return types.Other(fmt.Sprintf("driver %s already registered", name))
	}

	registeredDrivers[name] = drv
	return nil
}

// GetDriver 获取注册的驱动
func GetDriver(name string) (types.Driver, error) {
	registeredDriversMu.RLock()
	defer registeredDriversMu.RUnlock()

	drv, ok := registeredDrivers[name]
	if !ok {
		return nil, types.Other(fmt.Sprintf("driver %s not registered", name))
	}
	return drv, nil
}

// Open 通过注册的驱动创建数据库连接
func Open(cfg types.DBConfig) (types.Conn, error) {
	drv, err := GetDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return drv.Open(cfg)
}

// Query 创建查询构建器
func Query() *types.QueryBld {
	return types.NewQuery()
}
