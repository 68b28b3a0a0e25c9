package rdb

import (
	"context"
	"reflect"
	"time"

	"github.com/hatlonely/liteorm/rdb/aggregation"
	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/query"
	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/pkg/errors"
)

// Table 记录类型 T 对应的表，T 必须是嵌入了 Model 的结构体
type Table[T any] struct {
	db   *DB
	desc *model.Descriptor
}

func NewTable[T any](db *DB) (*Table[T], error) {
	desc, err := model.Of[T]()
	if err != nil {
		return nil, err
	}
	return &Table[T]{db: db, desc: desc}, nil
}

func MustNewTable[T any](db *DB) *Table[T] {
	t, err := NewTable[T](db)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table[T]) Descriptor() *model.Descriptor {
	return t.desc
}

func (t *Table[T]) Name() string {
	return t.desc.Table
}

func now() int64 {
	return time.Now().UnixMilli()
}

// Insert 插入记录，createdAt 和 updatedAt 设置为当前时间，id 回填为数据库分配的值
func (t *Table[T]) Insert(ctx context.Context, record *T) error {
	if record == nil {
		return errors.Wrapf(model.ErrInvalidRecordType, "insert into %s: nil record", t.desc.Table)
	}
	rv := reflect.ValueOf(record)
	ts := now()
	t.desc.SetInt(rv, model.ColumnCreatedAt, ts)
	t.desc.SetInt(rv, model.ColumnUpdatedAt, ts)

	stmt, err := sqlgen.Insert(t.desc, record, t.db.codec)
	if err != nil {
		return err
	}
	result, err := t.db.exec(ctx, stmt)
	if err != nil {
		return err
	}
	t.desc.SetInt(rv, model.ColumnID, result.LastInsertID)
	return nil
}

// Update 按 id 更新记录中所有非 null 的属性
func (t *Table[T]) Update(ctx context.Context, record *T) (int64, error) {
	if record == nil {
		return 0, errors.Wrapf(model.ErrInvalidRecordType, "update %s: nil record", t.desc.Table)
	}
	id := t.desc.GetInt(reflect.ValueOf(record), model.ColumnID)
	if id == 0 {
		return 0, errors.Errorf("update %s: record has no id", t.desc.Table)
	}
	return t.update(ctx, record, query.New().Where("id = ?", id))
}

// UpdateWhere 用记录中所有非 null 的属性更新满足条件的行
func (t *Table[T]) UpdateWhere(ctx context.Context, record *T, predicate string, args ...any) (int64, error) {
	return t.update(ctx, record, query.New().Where(predicate, args...))
}

// UpdateWith 通过 Options 指定条件，Select 的列限定更新范围，updatedAt 总是被更新
func (t *Table[T]) UpdateWith(ctx context.Context, record *T, fn func(*query.Options)) (int64, error) {
	opts := query.New()
	if fn != nil {
		fn(opts)
	}
	if len(opts.Columns()) > 0 {
		opts.Select(model.ColumnUpdatedAt)
	}
	return t.update(ctx, record, opts)
}

func (t *Table[T]) update(ctx context.Context, record *T, opts *query.Options) (int64, error) {
	if record == nil {
		return 0, errors.Wrapf(model.ErrInvalidRecordType, "update %s: nil record", t.desc.Table)
	}
	t.desc.SetInt(reflect.ValueOf(record), model.ColumnUpdatedAt, now())
	stmt, err := sqlgen.Update(t.desc, record, t.db.codec, opts)
	if err != nil {
		return 0, err
	}
	result, err := t.db.exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// Delete 删除满足条件的行，空条件删除全部行
func (t *Table[T]) Delete(ctx context.Context, predicate string, args ...any) (int64, error) {
	return t.delete(ctx, query.New().Where(predicate, args...))
}

func (t *Table[T]) DeleteByIDs(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return t.delete(ctx, query.New().Where("id in (?)", ids))
}

func (t *Table[T]) DeleteAll(ctx context.Context) (int64, error) {
	return t.delete(ctx, nil)
}

func (t *Table[T]) delete(ctx context.Context, opts *query.Options) (int64, error) {
	stmt, err := sqlgen.Delete(t.desc.Table, opts)
	if err != nil {
		return 0, err
	}
	result, err := t.db.exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// Find 按 fn 设置的条件查询，fn 为 nil 时返回全部记录
// 设置了投影列时只解码这些列，其余属性保持零值
func (t *Table[T]) Find(ctx context.Context, fn func(*query.Options)) ([]*T, error) {
	opts := query.New()
	if fn != nil {
		fn(opts)
	}
	return t.find(ctx, opts)
}

func (t *Table[T]) FindWhere(ctx context.Context, predicate string, args ...any) ([]*T, error) {
	return t.find(ctx, query.New().Where(predicate, args...))
}

func (t *Table[T]) FindByIDs(ctx context.Context, ids ...int64) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	return t.find(ctx, query.New().Where("id in (?)", ids))
}

func (t *Table[T]) FindAll(ctx context.Context) ([]*T, error) {
	return t.find(ctx, nil)
}

func (t *Table[T]) FindOne(ctx context.Context, predicate string, args ...any) (*T, error) {
	return t.one(ctx, query.New().Where(predicate, args...).Limit(1))
}

func (t *Table[T]) FindOneByID(ctx context.Context, id int64) (*T, error) {
	return t.one(ctx, query.New().Where("id = ?", id).Limit(1))
}

// First id 最小的满足条件的记录
func (t *Table[T]) First(ctx context.Context, predicate string, args ...any) (*T, error) {
	return t.one(ctx, query.New().Where(predicate, args...).Order(model.ColumnID, query.ASC).Limit(1))
}

// Last id 最大的满足条件的记录
func (t *Table[T]) Last(ctx context.Context, predicate string, args ...any) (*T, error) {
	return t.one(ctx, query.New().Where(predicate, args...).Order(model.ColumnID, query.DESC).Limit(1))
}

func (t *Table[T]) one(ctx context.Context, opts *query.Options) (*T, error) {
	records, err := t.find(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrRecordNotFound, "table %s", t.desc.Table)
	}
	return records[0], nil
}

func (t *Table[T]) find(ctx context.Context, opts *query.Options) ([]*T, error) {
	stmt, err := sqlgen.Query(t.desc.Table, opts)
	if err != nil {
		return nil, err
	}
	rows, err := t.db.query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	selected := model.Projection(opts.Columns())
	records := make([]*T, 0, rows.Len())
	for _, cells := range rows.Values {
		rv, err := t.desc.DecodeRow(rows.Columns, cells, selected, t.db.codec)
		if err != nil {
			return nil, errors.WithMessagef(err, "decode row of %s", t.desc.Table)
		}
		records = append(records, rv.Interface().(*T))
	}
	return records, nil
}

func (t *Table[T]) Count(ctx context.Context, predicate string, args ...any) (int64, error) {
	return t.metricInt(ctx, aggregation.Count("count", ""), predicate, args)
}

// Sum 求和，超过 2^53 的整数和使用 SumInt
func (t *Table[T]) Sum(ctx context.Context, column string, predicate string, args ...any) (float64, error) {
	return t.metric(ctx, aggregation.Sum("sum", column), predicate, args)
}

func (t *Table[T]) Average(ctx context.Context, column string, predicate string, args ...any) (float64, error) {
	return t.metric(ctx, aggregation.Avg("avg", column), predicate, args)
}

// Max 最大值，最大值不是数值时返回错误
func (t *Table[T]) Max(ctx context.Context, column string, predicate string, args ...any) (float64, error) {
	return t.metric(ctx, aggregation.Max("max", column), predicate, args)
}

func (t *Table[T]) Min(ctx context.Context, column string, predicate string, args ...any) (float64, error) {
	return t.metric(ctx, aggregation.Min("min", column), predicate, args)
}

// SumInt 整数列求和，结果不经过浮点数
func (t *Table[T]) SumInt(ctx context.Context, column string, predicate string, args ...any) (int64, error) {
	return t.metricInt(ctx, aggregation.Sum("sum", column), predicate, args)
}

func (t *Table[T]) MaxInt(ctx context.Context, column string, predicate string, args ...any) (int64, error) {
	return t.metricInt(ctx, aggregation.Max("max", column), predicate, args)
}

func (t *Table[T]) MinInt(ctx context.Context, column string, predicate string, args ...any) (int64, error) {
	return t.metricInt(ctx, aggregation.Min("min", column), predicate, args)
}

func (t *Table[T]) metric(ctx context.Context, agg aggregation.Aggregation, predicate string, args []any) (float64, error) {
	result, err := t.aggregate(ctx, agg, predicate, args)
	if err != nil {
		return 0, err
	}
	v, err := result.GetValue(agg.Name())
	if err != nil {
		return 0, errors.WithMessagef(err, "table %s", t.desc.Table)
	}
	return v, nil
}

func (t *Table[T]) metricInt(ctx context.Context, agg aggregation.Aggregation, predicate string, args []any) (int64, error) {
	result, err := t.aggregate(ctx, agg, predicate, args)
	if err != nil {
		return 0, err
	}
	n, err := result.GetInt(agg.Name())
	if err != nil {
		return 0, errors.WithMessagef(err, "table %s", t.desc.Table)
	}
	return n, nil
}

func (t *Table[T]) aggregate(ctx context.Context, agg aggregation.Aggregation, predicate string, args []any) (*aggregation.Result, error) {
	results, err := t.Aggregate(ctx, func(o *query.Options) {
		o.Where(predicate, args...)
	}, agg)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return aggregation.NewResult(), nil
	}
	return results[0], nil
}

// Aggregate 计算聚合，fn 中的 Group 列会一并出现在每行结果中
func (t *Table[T]) Aggregate(ctx context.Context, fn func(*query.Options), aggs ...aggregation.Aggregation) ([]*aggregation.Result, error) {
	columns, err := aggregation.Select(aggs...)
	if err != nil {
		return nil, err
	}

	opts := query.New()
	if fn != nil {
		fn(opts)
	}
	if len(opts.Columns()) == 0 {
		opts.Select(opts.Groups()...)
	}
	opts.Select(columns...)

	stmt, err := sqlgen.Query(t.desc.Table, opts)
	if err != nil {
		return nil, err
	}
	rows, err := t.db.query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	results := make([]*aggregation.Result, 0, rows.Len())
	for _, cells := range rows.Values {
		result, err := aggregation.NewResultFromRow(rows.Columns, cells)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
