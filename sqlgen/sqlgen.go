// Package sqlgen 生成模型层用的 SQL 文本。占位符一律是 $1..$n，
// 按参数顺序从 1 连续编号，目标库不支持时用 Rewrite 改写。
package sqlgen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Kaguya154/vicocomo/types"
)

// Placeholders 行优先的占位符矩阵："($1, $2), ($3, $4)"
func Placeholders(rowCnt, colCnt int) string {
	var sb strings.Builder
	n := 1
	for row := 0; row < rowCnt; row++ {
		if row > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for col := 0; col < colCnt; col++ {
			if col > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// PkTuples 批量删除的 IN 列表。单列主键不加元组括号：
// "$1, $2"；复合主键："($1, $2), ($3, $4)"
func PkTuples(rowCnt, pkCnt int) string {
	if pkCnt > 1 {
		return Placeholders(rowCnt, pkCnt)
	}
	var sb strings.Builder
	for row := 0; row < rowCnt; row++ {
		if row > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(row + 1))
	}
	return sb.String()
}

// PkSelect 主键选择条件："pk1 = $1 AND pk2 = $2"
func PkSelect(pkCols []string) string {
	var sb strings.Builder
	for i, col := range pkCols {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(col)
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(i + 1))
	}
	return sb.String()
}

// Select 生成查询语句。where/order 为空时省略对应子句，
// limit/offset 负值表示不设置。
func Select(cols []string, table, where, order string, limit, offset int) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}
	if limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	}
	if offset >= 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(offset))
	}
	return sb.String()
}

// Insert 多行插入，可选 RETURNING
func Insert(table string, cols []string, rowCnt int, returning []string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")
	sb.WriteString(Placeholders(rowCnt, len(cols)))
	if len(returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(returning, ", "))
	}
	return sb.String()
}

// Update 更新语句。参数向量里主键值在前（$1..$K），SET 的值接着编号，
// firstParam 是第一个 SET 占位符的编号。
func Update(table string, setCols []string, firstParam int, where string, returning []string) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, col := range setCols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(firstParam + i))
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)
	if len(returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(returning, ", "))
	}
	return sb.String()
}

// Delete 删除语句
func Delete(table, where string) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String()
}

var placeholder = regexp.MustCompile(`\$([0-9]+)`)

// Rewrite 把 $n 占位符改写为 ?，参数按占位符在文本中出现的顺序重排。
// 同一个 $n 出现多次时参数会被复制。
func Rewrite(sql string, params []types.DbValue) (string, []types.DbValue) {
	ordered := make([]types.DbValue, 0, len(params))
	out := placeholder.ReplaceAllStringFunc(sql, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		if n < 1 || n > len(params) {
			return m
		}
		ordered = append(ordered, params[n-1])
		return "?"
	})
	return out, ordered
}
