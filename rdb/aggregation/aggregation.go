package aggregation

import (
	"fmt"

	"github.com/pkg/errors"
)

// AggregationType 聚合类型
type AggregationType string

const (
	AggTypeCount AggregationType = "count"
	AggTypeSum   AggregationType = "sum"
	AggTypeAvg   AggregationType = "avg"
	AggTypeMax   AggregationType = "max"
	AggTypeMin   AggregationType = "min"
)

// Aggregation 聚合接口，ToSQL 生成 select 列表中的一项
type Aggregation interface {
	Type() AggregationType
	Name() string
	ToSQL() (string, []any, error)
}

// MetricAggregation 指标聚合，对一列计算一个数值
// 空结果集上 count 为 0，其余聚合在数据库中为 null，通过 Result 读取时按 0 处理
type MetricAggregation struct {
	AggType AggregationType
	AggName string
	Field   string
}

func (m *MetricAggregation) Type() AggregationType {
	return m.AggType
}

// Name 结果列的别名，未指定时使用聚合类型
func (m *MetricAggregation) Name() string {
	if m.AggName == "" {
		return string(m.AggType)
	}
	return m.AggName
}

func (m *MetricAggregation) ToSQL() (string, []any, error) {
	switch m.AggType {
	case AggTypeCount:
		if m.Field == "" {
			return fmt.Sprintf("count(*) as %s", m.Name()), nil, nil
		}
	case AggTypeSum, AggTypeAvg, AggTypeMax, AggTypeMin:
		if m.Field == "" {
			return "", nil, errors.Errorf("%s aggregation requires a field", m.AggType)
		}
	default:
		return "", nil, errors.Errorf("unsupported aggregation type %q", m.AggType)
	}
	return fmt.Sprintf("%s(%s) as %s", m.AggType, m.Field, m.Name()), nil, nil
}

// Count 计数，field 为空时为 count(*)
func Count(name, field string) *MetricAggregation {
	return &MetricAggregation{AggType: AggTypeCount, AggName: name, Field: field}
}

func Sum(name, field string) *MetricAggregation {
	return &MetricAggregation{AggType: AggTypeSum, AggName: name, Field: field}
}

func Avg(name, field string) *MetricAggregation {
	return &MetricAggregation{AggType: AggTypeAvg, AggName: name, Field: field}
}

func Max(name, field string) *MetricAggregation {
	return &MetricAggregation{AggType: AggTypeMax, AggName: name, Field: field}
}

func Min(name, field string) *MetricAggregation {
	return &MetricAggregation{AggType: AggTypeMin, AggName: name, Field: field}
}

// Select 把一组聚合编译为 select 列
func Select(aggs ...Aggregation) ([]string, error) {
	if len(aggs) == 0 {
		return nil, errors.New("no aggregation")
	}
	columns := make([]string, 0, len(aggs))
	for _, agg := range aggs {
		sql, _, err := agg.ToSQL()
		if err != nil {
			return nil, err
		}
		columns = append(columns, sql)
	}
	return columns, nil
}
