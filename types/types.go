package types

import "github.com/rs/zerolog"

// DBConfig 连接配置
type DBConfig struct {
	Driver  string
	DSN     string
	MaxOpen int
	MaxIdle int
	// Logger 为 nil 时不输出日志
	Logger *zerolog.Logger
}

// Log 返回配置的 logger，未配置时返回 Nop
func (c DBConfig) Log() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

type OpType string

const (
	OpInsert OpType = "Insert"
	OpQuery  OpType = "Query"
	OpUpdate OpType = "Update"
	OpDelete OpType = "Delete"
	OpExec   OpType = "Exec"
)

func (op OpType) String() string {
	return string(op)
}
