package schema

import (
	"context"
	"sort"

	"github.com/hatlonely/liteorm/log"
	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/pkg/errors"
)

// Diff 计算使数据库与声明的记录类型一致所需的 DDL
// 按类型的声明顺序处理：表不存在则建表，否则补齐缺失的列，已有列的类型不做修改；
// 每个索引属性若所在列已有单列索引则保留，否则建索引，多列索引不满足要求；最后删除所有类型都不再需要的索引
func Diff(snapshot *Snapshot, descriptors ...*model.Descriptor) []sqlgen.Statement {
	var statements []sqlgen.Statement

	pending := make(map[string]database.Index, len(snapshot.Indexes))
	for name, index := range snapshot.Indexes {
		pending[name] = index
	}

	for _, d := range descriptors {
		if !snapshot.HasTable(d.Table) {
			statements = append(statements, sqlgen.Create(d))
		} else {
			for _, attr := range d.Attributes {
				if attr.Name == model.ColumnID || snapshot.HasColumn(d.Table, attr.Name) {
					continue
				}
				statements = append(statements, sqlgen.AddColumn(d.Table, attr.Name, attr.SQLType()))
			}
		}

		for _, column := range d.Indexes {
			if name, ok := findIndex(snapshot, d.Table, column); ok {
				delete(pending, name)
				continue
			}
			statements = append(statements, sqlgen.CreateIndex(d, column))
		}
	}

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		statements = append(statements, sqlgen.DropIndex(name))
	}
	return statements
}

func findIndex(snapshot *Snapshot, table, column string) (string, bool) {
	// 优先匹配按命名规则生成的索引
	if index, ok := snapshot.Indexes[model.IndexName(table, column)]; ok && index.Table == table && index.Covers(column) {
		return index.Name, true
	}
	for _, name := range snapshot.IndexNames() {
		index := snapshot.Indexes[name]
		if index.Table == table && index.Covers(column) {
			return name, true
		}
	}
	return "", false
}

// Synchronizer 把声明的记录类型同步到数据库
type Synchronizer struct {
	executor database.Executor
	logger   log.Logger
}

func NewSynchronizer(executor database.Executor, logger log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Synchronizer{executor: executor, logger: logger}
}

// Plan 计算同步需要执行的语句，不修改数据库
func (s *Synchronizer) Plan(ctx context.Context, descriptors ...*model.Descriptor) ([]sqlgen.Statement, error) {
	snapshot, err := TakeSnapshot(ctx, s.executor)
	if err != nil {
		return nil, err
	}
	return Diff(snapshot, descriptors...), nil
}

// Sync 计算并依次执行同步语句，返回已执行的语句
// 任何一条语句失败都会中止同步，后续语句不再执行
func (s *Synchronizer) Sync(ctx context.Context, descriptors ...*model.Descriptor) ([]sqlgen.Statement, error) {
	statements, err := s.Plan(ctx, descriptors...)
	if err != nil {
		return nil, err
	}

	for i, stmt := range statements {
		if _, err := s.executor.Exec(ctx, stmt); err != nil {
			s.logger.ErrorContext(ctx, "schema sync aborted", "sql", stmt.Inline(), "applied", i, "planned", len(statements), "error", err.Error())
			return statements[:i], errors.WithMessagef(err, "schema sync aborted after %d of %d statements", i, len(statements))
		}
		s.logger.InfoContext(ctx, "schema statement applied", "sql", stmt.Inline())
	}
	return statements, nil
}
