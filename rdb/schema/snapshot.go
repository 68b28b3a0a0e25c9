package schema

import (
	"context"
	"sort"

	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/pkg/errors"
)

// Snapshot 某一时刻的表、列和索引，只用于计算差异
type Snapshot struct {
	// Tables 表名到列名与列类型的映射，列类型为小写
	Tables map[string]map[string]string
	// Indexes 索引名到索引的映射
	Indexes map[string]database.Index
}

// TakeSnapshot 读取数据库目录
func TakeSnapshot(ctx context.Context, executor database.Executor) (*Snapshot, error) {
	tables, err := executor.Tables(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "take snapshot")
	}

	snapshot := &Snapshot{
		Tables:  make(map[string]map[string]string, len(tables)),
		Indexes: map[string]database.Index{},
	}
	for _, table := range tables {
		columns, err := executor.Columns(ctx, table)
		if err != nil {
			return nil, errors.WithMessage(err, "take snapshot")
		}
		snapshot.Tables[table] = make(map[string]string, len(columns))
		for _, column := range columns {
			snapshot.Tables[table][column.Name] = column.Type
		}

		indexes, err := executor.Indexes(ctx, table)
		if err != nil {
			return nil, errors.WithMessage(err, "take snapshot")
		}
		for _, index := range indexes {
			snapshot.Indexes[index.Name] = index
		}
	}
	return snapshot, nil
}

func (s *Snapshot) HasTable(table string) bool {
	_, ok := s.Tables[table]
	return ok
}

func (s *Snapshot) HasColumn(table, column string) bool {
	_, ok := s.Tables[table][column]
	return ok
}

// TableNames 按字母序返回所有表名
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexNames 按字母序返回所有索引名
func (s *Snapshot) IndexNames() []string {
	names := make([]string, 0, len(s.Indexes))
	for name := range s.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
