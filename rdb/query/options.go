package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Direction string

const (
	ASC  Direction = "asc"
	DESC Direction = "desc"
)

type Order struct {
	Column    string
	Direction Direction
}

func (o Order) String() string {
	if o.Direction == "" {
		return o.Column
	}
	return fmt.Sprintf("%s %s", o.Column, o.Direction)
}

// Options 查询的过滤、投影、排序、分页条件，零值可用，表示全部行、全部列、不排序
// 构造过程中的错误会被记录下来，在生成语句时通过 Err 返回
type Options struct {
	columns   []string
	predicate string
	args      []any
	groups    []string
	orders    []Order
	limit     int64
	offset    int64
	hasLimit  bool
	hasOffset bool
	err       error
}

func New() *Options {
	return &Options{}
}

// Select 投影列，多次调用时追加
func (o *Options) Select(columns ...string) *Options {
	o.columns = append(o.columns, columns...)
	return o
}

// Where 设置过滤条件，多次调用时以 and 组合，空条件表示不过滤
func (o *Options) Where(predicate string, args ...any) *Options {
	if strings.TrimSpace(predicate) == "" {
		if len(args) != 0 && o.err == nil {
			o.err = errors.Wrapf(ErrMalformedOptions, "empty predicate with %d args", len(args))
		}
		return o
	}

	sql, values, err := Compile(predicate, args...)
	if err != nil {
		if o.err == nil {
			o.err = err
		}
		return o
	}
	o.and(sql, values)
	return o
}

// Filter 以查询节点作为过滤条件，与 Where 以 and 组合
func (o *Options) Filter(q Query) *Options {
	sql, values, err := q.ToSQL()
	if err != nil {
		if o.err == nil {
			o.err = err
		}
		return o
	}
	for i, v := range values {
		if b, ok := v.(bool); ok {
			values[i] = boolValue(b)
		}
	}
	o.and(sql, values)
	return o
}

func (o *Options) and(sql string, values []any) {
	if o.predicate == "" {
		o.predicate = sql
	} else {
		o.predicate = fmt.Sprintf("(%s) and (%s)", o.predicate, sql)
	}
	o.args = append(o.args, values...)
}

func (o *Options) Group(columns ...string) *Options {
	o.groups = append(o.groups, columns...)
	return o
}

// Order 排序列，direction 不区分大小写，缺省时使用数据库默认的升序
func (o *Options) Order(column string, direction ...Direction) *Options {
	order := Order{Column: column}
	if len(direction) > 0 {
		order.Direction = Direction(strings.ToLower(strings.TrimSpace(string(direction[0]))))
		if order.Direction != ASC && order.Direction != DESC && o.err == nil {
			o.err = errors.Wrapf(ErrMalformedOptions, "unknown order direction %q", order.Direction)
		}
	}
	o.orders = append(o.orders, order)
	return o
}

func (o *Options) Limit(n int64) *Options {
	if n < 0 && o.err == nil {
		o.err = errors.Wrapf(ErrMalformedOptions, "negative limit %d", n)
	}
	o.limit, o.hasLimit = n, true
	return o
}

func (o *Options) Offset(n int64) *Options {
	if n < 0 && o.err == nil {
		o.err = errors.Wrapf(ErrMalformedOptions, "negative offset %d", n)
	}
	o.offset, o.hasOffset = n, true
	return o
}

func (o *Options) Err() error {
	if o == nil {
		return nil
	}
	return o.err
}

func (o *Options) Columns() []string {
	if o == nil {
		return nil
	}
	return o.columns
}

// Predicate 规范化之后的条件表达式和绑定参数，没有条件时返回空字符串
func (o *Options) Predicate() (string, []any) {
	if o == nil {
		return "", nil
	}
	return o.predicate, o.args
}

func (o *Options) Groups() []string {
	if o == nil {
		return nil
	}
	return o.groups
}

func (o *Options) Orders() []Order {
	if o == nil {
		return nil
	}
	return o.orders
}

// Paging 返回 limit 和 offset，未设置时对应的 ok 为 false
func (o *Options) Paging() (limit int64, hasLimit bool, offset int64, hasOffset bool) {
	if o == nil {
		return 0, false, 0, false
	}
	return o.limit, o.hasLimit, o.offset, o.hasOffset
}

// Clause 条件表达式的字面量形式，用于日志和测试
func (o *Options) Clause() string {
	predicate, args := o.Predicate()
	return Inline(predicate, args)
}
