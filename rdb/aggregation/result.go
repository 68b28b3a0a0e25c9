package aggregation

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Result 一行聚合结果，包含聚合列以及 group by 的分组列
type Result struct {
	results map[string]any
}

func NewResult() *Result {
	return &Result{results: map[string]any{}}
}

// NewResultFromRow 由结果集中的一行构造
func NewResultFromRow(columns []string, cells []any) (*Result, error) {
	if len(columns) != len(cells) {
		return nil, errors.Errorf("got %d columns but %d cells", len(columns), len(cells))
	}
	r := NewResult()
	for i, column := range columns {
		r.SetResult(column, cells[i])
	}
	return r, nil
}

func (r *Result) SetResult(aggName string, value any) {
	r.results[aggName] = value
}

func (r *Result) Get(aggName string) any {
	return r.results[aggName]
}

// GetValue 读取数值结果，null 返回 0，无法解析为数值时返回错误
// 超过 2^53 的整数会丢失精度，整数结果使用 GetInt
func (r *Result) GetValue(aggName string) (float64, error) {
	switch v := r.results[aggName].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return parseFloat(aggName, string(v))
	case string:
		return parseFloat(aggName, v)
	default:
		return 0, errors.Errorf("aggregation %s: %T is not a number", aggName, v)
	}
}

// GetInt 读取整数结果，整数原样返回，null 返回 0
// 带小数部分的实数以及无法解析为整数的值返回错误
func (r *Result) GetInt(aggName string) (int64, error) {
	switch v := r.results[aggName].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return floatToInt(aggName, v)
	case []byte:
		return parseInt(aggName, string(v))
	case string:
		return parseInt(aggName, v)
	default:
		return 0, errors.Errorf("aggregation %s: %T is not an integer", aggName, v)
	}
}

func parseFloat(aggName, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Errorf("aggregation %s: %q is not a number", aggName, s)
	}
	return f, nil
}

func parseInt(aggName, s string) (int64, error) {
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return n, nil
	}
	f, err := parseFloat(aggName, s)
	if err != nil {
		return 0, err
	}
	return floatToInt(aggName, f)
}

func floatToInt(aggName string, f float64) (int64, error) {
	// 2^63 无法用 int64 表示
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.Errorf("aggregation %s: %v is not an integer", aggName, f)
	}
	return int64(f), nil
}
