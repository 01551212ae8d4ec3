package types

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类
type ErrorKind int

const (
	KindDatabase ErrorKind = iota
	KindInvalidInput
	KindOther
	KindRender
)

func (k ErrorKind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindInvalidInput:
		return "invalid input"
	case KindRender:
		return "render"
	default:
		return "other"
	}
}

// Error 库内所有操作返回的错误类型
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Database 数据库层错误
func Database(msg string) *Error {
	return &Error{Kind: KindDatabase, Msg: msg}
}

// DatabaseErr 包装底层驱动错误
func DatabaseErr(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindDatabase, Msg: err.Error()}
}

// InvalidInput 调用方给出的数据不合法
func InvalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg}
}

// Other 其他错误
func Other(msg string) *Error {
	return &Error{Kind: KindOther, Msg: msg}
}

// NYI 未实现
func NYI() *Error {
	return &Error{Kind: KindOther, Msg: "not yet implemented"}
}

// KindOf 取错误分类，非本库错误一律视为 KindOther
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}
