package types

import (
	"fmt"
	"time"
)

// DbType 列类型，封闭枚举，Query 按位置用它解码结果列
type DbType uint8

const (
	DbFloat DbType = iota
	DbInt
	DbText
	DbNulFloat
	DbNulInt
	DbNulText
)

func (t DbType) String() string {
	switch t {
	case DbFloat:
		return "Float"
	case DbInt:
		return "Int"
	case DbText:
		return "Text"
	case DbNulFloat:
		return "NulFloat"
	case DbNulInt:
		return "NulInt"
	case DbNulText:
		return "NulText"
	}
	return fmt.Sprintf("DbType(%d)", t)
}

// Nullable 是否为可空变体
func (t DbType) Nullable() bool {
	return t >= DbNulFloat
}

// DbValue 数据库值，六个变体之一，不做跨变体转换
type DbValue struct {
	typ  DbType
	f    float64
	i    int64
	s    string
	null bool
}

func Float(f float64) DbValue { return DbValue{typ: DbFloat, f: f} }
func Int(i int64) DbValue     { return DbValue{typ: DbInt, i: i} }
func Text(s string) DbValue   { return DbValue{typ: DbText, s: s} }

// NulFloat nil 表示 NULL
func NulFloat(f *float64) DbValue {
	if f == nil {
		return DbValue{typ: DbNulFloat, null: true}
	}
	return DbValue{typ: DbNulFloat, f: *f}
}

// NulInt nil 表示 NULL
func NulInt(i *int64) DbValue {
	if i == nil {
		return DbValue{typ: DbNulInt, null: true}
	}
	return DbValue{typ: DbNulInt, i: *i}
}

// NulText nil 表示 NULL
func NulText(s *string) DbValue {
	if s == nil {
		return DbValue{typ: DbNulText, null: true}
	}
	return DbValue{typ: DbNulText, s: *s}
}

// Bool 按 0/1 存为 Int
func Bool(b bool) DbValue {
	if b {
		return Int(1)
	}
	return Int(0)
}

// TimeVal 按 Unix 秒存为 Int
func TimeVal(t time.Time) DbValue { return Int(t.Unix()) }

func (v DbValue) Type() DbType { return v.typ }

// Null 是否为可空变体的 NULL
func (v DbValue) Null() bool { return v.typ.Nullable() && v.null }

func (v DbValue) convErr(want DbType) *Error {
	return InvalidInput(fmt.Sprintf("cannot convert %s to %s", v, want))
}

func (v DbValue) AsFloat() (float64, error) {
	if v.typ != DbFloat {
		return 0, v.convErr(DbFloat)
	}
	return v.f, nil
}

func (v DbValue) AsInt() (int64, error) {
	if v.typ != DbInt {
		return 0, v.convErr(DbInt)
	}
	return v.i, nil
}

func (v DbValue) AsText() (string, error) {
	if v.typ != DbText {
		return "", v.convErr(DbText)
	}
	return v.s, nil
}

func (v DbValue) AsNulFloat() (*float64, error) {
	if v.typ != DbNulFloat {
		return nil, v.convErr(DbNulFloat)
	}
	if v.null {
		return nil, nil
	}
	f := v.f
	return &f, nil
}

func (v DbValue) AsNulInt() (*int64, error) {
	if v.typ != DbNulInt {
		return nil, v.convErr(DbNulInt)
	}
	if v.null {
		return nil, nil
	}
	i := v.i
	return &i, nil
}

func (v DbValue) AsNulText() (*string, error) {
	if v.typ != DbNulText {
		return nil, v.convErr(DbNulText)
	}
	if v.null {
		return nil, nil
	}
	s := v.s
	return &s, nil
}

func (v DbValue) AsBool() (bool, error) {
	i, err := v.AsInt()
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

func (v DbValue) AsTime() (time.Time, error) {
	i, err := v.AsInt()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(i, 0).UTC(), nil
}

// Opt 把可空变体摊平：NULL 返回 false，有值返回对应的非空变体
func (v DbValue) Opt() (DbValue, bool) {
	switch v.typ {
	case DbNulFloat:
		if v.null {
			return DbValue{}, false
		}
		return Float(v.f), true
	case DbNulInt:
		if v.null {
			return DbValue{}, false
		}
		return Int(v.i), true
	case DbNulText:
		if v.null {
			return DbValue{}, false
		}
		return Text(v.s), true
	}
	return v, true
}

func (v DbValue) String() string {
	if v.Null() {
		return fmt.Sprintf("%s(NULL)", v.typ)
	}
	switch v.typ {
	case DbFloat, DbNulFloat:
		return fmt.Sprintf("%s(%v)", v.typ, v.f)
	case DbText, DbNulText:
		return fmt.Sprintf("%s(%q)", v.typ, v.s)
	}
	return fmt.Sprintf("%s(%d)", v.typ, v.i)
}

// Arg 转成交给 database/sql 的实参
func (v DbValue) Arg() interface{} {
	if v.Null() {
		return nil
	}
	switch v.typ {
	case DbFloat, DbNulFloat:
		return v.f
	case DbText, DbNulText:
		return v.s
	}
	return v.i
}

// Args 批量转换
func Args(values []DbValue) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v.Arg()
	}
	return out
}

// Decode 按期望类型解码驱动扫描出的原始值
func Decode(col int, typ DbType, raw interface{}) (DbValue, error) {
	if raw == nil {
		if !typ.Nullable() {
			return DbValue{}, Database(fmt.Sprintf("column %d: NULL in %s position", col, typ))
		}
		return DbValue{typ: typ, null: true}, nil
	}
	switch typ {
	case DbFloat, DbNulFloat:
		switch r := raw.(type) {
		case float64:
			return DbValue{typ: typ, f: r}, nil
		case float32:
			return DbValue{typ: typ, f: float64(r)}, nil
		}
	case DbInt, DbNulInt:
		switch r := raw.(type) {
		case int64:
			return DbValue{typ: typ, i: r}, nil
		case int32:
			return DbValue{typ: typ, i: int64(r)}, nil
		case bool:
			return DbValue{typ: typ, i: boolInt(r)}, nil
		}
	case DbText, DbNulText:
		switch r := raw.(type) {
		case string:
			return DbValue{typ: typ, s: r}, nil
		case []byte:
			return DbValue{typ: typ, s: string(r)}, nil
		}
	}
	return DbValue{}, Database(fmt.Sprintf("column %d: cannot decode %T as %s", col, raw, typ))
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
