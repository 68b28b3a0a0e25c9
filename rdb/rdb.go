package rdb

import (
	"context"

	"github.com/hatlonely/liteorm/rdb/aggregation"
	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/query"
	"github.com/pkg/errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrClosed         = errors.New("db is closed")

	ErrUnsupportedAttributeType = model.ErrUnsupportedAttributeType
	ErrMissingPrimaryKey        = model.ErrMissingPrimaryKey
	ErrNoPersistableAttributes  = model.ErrNoPersistableAttributes
	ErrMalformedOptions         = query.ErrMalformedOptions
	ErrCatalogIntrospection     = database.ErrCatalogIntrospection
	ErrStatementExecution       = database.ErrStatementExecution
)

// Model 记录类型需要嵌入的隐式字段
type Model = model.Model

// ORM 单个记录类型的增删改查接口
type ORM[T any] interface {
	Insert(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) (int64, error)
	UpdateWhere(ctx context.Context, record *T, predicate string, args ...any) (int64, error)
	UpdateWith(ctx context.Context, record *T, fn func(*query.Options)) (int64, error)

	Delete(ctx context.Context, predicate string, args ...any) (int64, error)
	DeleteByIDs(ctx context.Context, ids ...int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	Find(ctx context.Context, fn func(*query.Options)) ([]*T, error)
	FindWhere(ctx context.Context, predicate string, args ...any) ([]*T, error)
	FindByIDs(ctx context.Context, ids ...int64) ([]*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	// FindOne 没有匹配的记录时返回 ErrRecordNotFound
	FindOne(ctx context.Context, predicate string, args ...any) (*T, error)
	FindOneByID(ctx context.Context, id int64) (*T, error)
	First(ctx context.Context, predicate string, args ...any) (*T, error)
	Last(ctx context.Context, predicate string, args ...any) (*T, error)

	// 聚合在没有匹配的记录时返回 0，聚合值不是数值时返回错误
	Count(ctx context.Context, predicate string, args ...any) (int64, error)
	Sum(ctx context.Context, column string, predicate string, args ...any) (float64, error)
	Average(ctx context.Context, column string, predicate string, args ...any) (float64, error)
	Max(ctx context.Context, column string, predicate string, args ...any) (float64, error)
	Min(ctx context.Context, column string, predicate string, args ...any) (float64, error)
	// SumInt、MaxInt、MinInt 用于整数列，结果精确
	SumInt(ctx context.Context, column string, predicate string, args ...any) (int64, error)
	MaxInt(ctx context.Context, column string, predicate string, args ...any) (int64, error)
	MinInt(ctx context.Context, column string, predicate string, args ...any) (int64, error)
	Aggregate(ctx context.Context, fn func(*query.Options), aggs ...aggregation.Aggregation) ([]*aggregation.Result, error)
}

var _ ORM[model.Model] = (*Table[model.Model])(nil)
