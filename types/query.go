package types

import (
	"regexp"
	"strconv"
)

type orderKind uint8

const (
	orderDflt orderKind = iota
	orderCustom
	orderNoOrder
)

// Order 查询结果的排序方式
type Order struct {
	kind   orderKind
	custom string
}

// Custom 自定义 ORDER 子句内容，不含 "ORDER BY"
func Custom(order string) Order { return Order{kind: orderCustom, custom: order} }

// DfltOrder 使用模型声明的默认排序
func DfltOrder() Order { return Order{kind: orderDflt} }

// NoOrder 不排序
func NoOrder() Order { return Order{kind: orderNoOrder} }

// Dflt 是否为默认排序
func (o Order) Dflt() bool { return o.kind == orderDflt }

// Custom 返回自定义排序内容，第二个返回值表示是否自定义
func (o Order) Custom() (string, bool) { return o.custom, o.kind == orderCustom }

// None 是否不排序
func (o Order) None() bool { return o.kind == orderNoOrder }

// Query 可复用的查询。Filter 为 WHERE 子句内容（不含 "WHERE"），
// Limit/Offset 负值表示未设置，Values 中 nil 表示占位符还没有绑定值。
type Query struct {
	Filter string
	Limit  int
	Offset int
	Order  Order
	Values []*DbValue
}

// Builder 基于已有查询的副本继续构建，不影响原查询
func (q *Query) Builder() *QueryBld {
	return &QueryBld{q: q.clone(), state: qbValid}
}

func (q *Query) clone() Query {
	c := *q
	c.Values = make([]*DbValue, len(q.Values))
	copy(c.Values, q.Values)
	return c
}

// SetValue 绑定第 ix 个占位符的值，ix 从 1 开始
func (q *Query) SetValue(ix int, value DbValue) *Query {
	v := value
	q.Values[ix-1] = &v
	return q
}

// SetValues 重新绑定全部占位符
func (q *Query) SetValues(values []DbValue) *Query {
	q.Values = make([]*DbValue, len(values))
	for i := range values {
		v := values[i]
		q.Values[i] = &v
	}
	return q
}

// SetLimit 负值表示去掉 limit
func (q *Query) SetLimit(limit int) *Query {
	q.Limit = limit
	return q
}

// SetOffset 负值表示去掉 offset
func (q *Query) SetOffset(offset int) *Query {
	q.Offset = offset
	return q
}

type qbState uint8

const (
	qbValid qbState = iota
	qbGotCol
	qbInvalid
)

// QueryBld 构建 Query 的状态机。不合法的调用顺序（比如 new 之后直接
// And，或者 Col 之后不接关系运算符）会使 Query() 返回 nil。
type QueryBld struct {
	q     Query
	state qbState
}

// NewQuery 创建查询构建器
func NewQuery() *QueryBld {
	return &QueryBld{
		q:     Query{Limit: -1, Offset: -1},
		state: qbValid,
	}
}

// Col 开始构建第一个 WHERE 条件，col 是数据库列名
func (b *QueryBld) Col(col string) *QueryBld {
	if b.state != qbValid || b.q.Filter != "" {
		return b.invalidate()
	}
	b.q.Filter = col
	b.state = qbGotCol
	return b
}

// And 用 AND 接上下一个 WHERE 条件
func (b *QueryBld) And(col string) *QueryBld { return b.logOp("AND", col) }

// Or 用 OR 接上下一个 WHERE 条件
func (b *QueryBld) Or(col string) *QueryBld { return b.logOp("OR", col) }

// Eq 完成一个 WHERE 条件，value 为 nil 时占位符留待以后绑定
func (b *QueryBld) Eq(value *DbValue) *QueryBld { return b.relOp("=", value) }

// Ne 同 Eq，运算符为 <>
func (b *QueryBld) Ne(value *DbValue) *QueryBld { return b.relOp("<>", value) }

// Gt 同 Eq，运算符为 >
func (b *QueryBld) Gt(value *DbValue) *QueryBld { return b.relOp(">", value) }

// Ge 同 Eq，运算符为 >=
func (b *QueryBld) Ge(value *DbValue) *QueryBld { return b.relOp(">=", value) }

// Lt 同 Eq，运算符为 <
func (b *QueryBld) Lt(value *DbValue) *QueryBld { return b.relOp("<", value) }

// Le 同 Eq，运算符为 <=
func (b *QueryBld) Le(value *DbValue) *QueryBld { return b.relOp("<=", value) }

var filterParams = regexp.MustCompile(`\$([0-9]+)`)

// Filter 追加一段自带 $n 占位符的 WHERE 条件。已有条件时新条件中的
// $n 会加上已有参数个数重新编号，并组合为 "(<旧>) AND <新>"。
func (b *QueryBld) Filter(fltr string, values []*DbValue) *QueryBld {
	if b.state != qbValid {
		return b.invalidate()
	}
	if b.q.Filter != "" {
		oldCount := len(b.q.Values)
		renumbered := filterParams.ReplaceAllStringFunc(fltr, func(m string) string {
			n, _ := strconv.Atoi(m[1:])
			return "$" + strconv.Itoa(n+oldCount)
		})
		b.q.Filter = "(" + b.q.Filter + ") AND " + renumbered
	} else {
		b.q.Filter = fltr
	}
	b.q.Values = append(b.q.Values, values...)
	return b
}

// Order 自定义 ORDER 子句内容，不含 "ORDER BY"
func (b *QueryBld) Order(order string) *QueryBld {
	b.q.Order = Custom(order)
	return b
}

// NoOrder 去掉排序，包括模型默认排序
func (b *QueryBld) NoOrder() *QueryBld {
	b.q.Order = NoOrder()
	return b
}

// Limit 限制返回行数
func (b *QueryBld) Limit(limit int) *QueryBld {
	b.q.Limit = limit
	return b
}

// Offset 跳过前面的行
func (b *QueryBld) Offset(offset int) *QueryBld {
	b.q.Offset = offset
	return b
}

// Query 冻结并返回构建好的查询，构建过程有问题时返回 nil。
// 返回的是副本，继续用构建器或 SetValue 都不会互相影响。
func (b *QueryBld) Query() *Query {
	if b.state != qbValid {
		return nil
	}
	q := b.q.clone()
	return &q
}

func (b *QueryBld) relOp(op string, value *DbValue) *QueryBld {
	if b.state != qbGotCol {
		return b.invalidate()
	}
	b.q.Filter += " " + op + " $" + strconv.Itoa(len(b.q.Values)+1)
	if value != nil {
		v := *value
		b.q.Values = append(b.q.Values, &v)
	} else {
		b.q.Values = append(b.q.Values, nil)
	}
	b.state = qbValid
	return b
}

func (b *QueryBld) logOp(op, col string) *QueryBld {
	if b.state != qbValid || b.q.Filter == "" {
		return b.invalidate()
	}
	b.q.Filter += " " + op + " " + col
	b.state = qbGotCol
	return b
}

func (b *QueryBld) invalidate() *QueryBld {
	b.state = qbInvalid
	return b
}
