package database

import (
	"context"
	"fmt"

	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/hatlonely/liteorm/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/liteorm/rdb/database"

func init() {
	ref.MustRegister(Namespace, "SQLite", NewSQLiteWithOptions)
	ref.MustRegister(Namespace, "ObservableExecutor", NewObservableExecutorWithOptions)
}

var (
	ErrCatalogIntrospection = errors.New("catalog introspection failed")
	ErrStatementExecution   = errors.New("statement execution failed")
	ErrClosed               = errors.New("executor is closed")
)

// StatementError 数据库拒绝或执行失败的语句，携带语句文本便于定位
type StatementError struct {
	SQL  string
	Args []any
	Err  error
}

func NewStatementError(stmt sqlgen.Statement, err error) *StatementError {
	return &StatementError{SQL: stmt.SQL, Args: stmt.Args, Err: err}
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("execute [%s] failed: %v", sqlgen.Statement{SQL: e.SQL, Args: e.Args}.Inline(), e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

func (e *StatementError) Is(target error) bool {
	return target == ErrStatementExecution
}

// Result 写语句的执行结果
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Rows 完整读出的结果集，读取结束后连接立即释放
type Rows struct {
	Columns []string
	Values  [][]any
}

func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Column 表中的一列，类型为小写的声明类型
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Index 用户创建的索引，Columns 按索引中的顺序排列
type Index struct {
	Name    string   `json:"name" yaml:"name"`
	Table   string   `json:"table" yaml:"table"`
	Columns []string `json:"columns" yaml:"columns"`
}

// Covers 是否为建在 column 上的单列索引
func (i Index) Covers(column string) bool {
	return len(i.Columns) == 1 && i.Columns[0] == column
}

// Executor 语句执行和目录查询接口
type Executor interface {
	Exec(ctx context.Context, stmt sqlgen.Statement) (Result, error)
	Query(ctx context.Context, stmt sqlgen.Statement) (*Rows, error)

	// Tables 返回所有用户表的表名，不包含 sqlite_ 开头的内部表
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]Column, error)
	// Indexes 返回通过 create index 创建的索引，不包含主键和唯一约束自动生成的索引
	Indexes(ctx context.Context, table string) ([]Index, error)

	Close() error
}

// NewExecutorWithOptions 通过 ref 注册表创建执行器
func NewExecutorWithOptions(options *ref.TypeOptions) (Executor, error) {
	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create executor")
	}
	executor, ok := obj.(Executor)
	if !ok {
		return nil, errors.Errorf("object %T does not implement Executor interface", obj)
	}
	return executor, nil
}
