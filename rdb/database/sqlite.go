package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hatlonely/liteorm/rdb/sqlgen"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type SQLiteOptions struct {
	// Driver sqlite 为纯 Go 实现，sqlite3 依赖 cgo
	Driver string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite sqlite3"`
	// Path 数据库文件路径，:memory: 为内存数据库，父目录不存在时自动创建
	Path string `cfg:"path" def:":memory:"`
	// DSN 不为空时直接传给驱动，忽略 Path
	DSN string `cfg:"dsn"`
	// MaxConns 内存数据库每个连接各自独立，必须为 1
	MaxConns int `cfg:"maxConns" def:"1" validate:"gte=1"`
}

type SQLite struct {
	db        *sql.DB
	driver    string
	closeOnce sync.Once
	closeErr  error
}

func NewSQLiteWithOptions(options *SQLiteOptions) (*SQLite, error) {
	if options == nil {
		options = &SQLiteOptions{}
	}
	driver := options.Driver
	if driver == "" {
		driver = "sqlite"
	}
	if driver != "sqlite" && driver != "sqlite3" {
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}

	dsn := options.DSN
	if dsn == "" {
		dsn = options.Path
		if dsn == "" {
			dsn = ":memory:"
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if dir := filepath.Dir(dsn); dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, errors.Wrapf(err, "create directory %s failed", dir)
				}
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", dsn)
	}

	maxConns := options.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	// 内存数据库随最后一个连接关闭而销毁
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s failed", dsn)
	}

	return &SQLite{db: db, driver: driver}, nil
}

func (s *SQLite) Driver() string {
	return s.driver
}

func (s *SQLite) Exec(ctx context.Context, stmt sqlgen.Statement) (Result, error) {
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Result{}, NewStatementError(stmt, s.translate(err))
	}

	var result Result
	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, NewStatementError(stmt, err)
	}
	if result.LastInsertID, err = res.LastInsertId(); err != nil {
		return Result{}, NewStatementError(stmt, err)
	}
	return result, nil
}

func (s *SQLite) Query(ctx context.Context, stmt sqlgen.Statement) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, NewStatementError(stmt, s.translate(err))
	}
	result, err := drain(rows)
	if err != nil {
		return nil, NewStatementError(stmt, err)
	}
	return result, nil
}

// drain 读出全部结果后关闭游标，单连接模式下游标未关闭会阻塞后续语句
func drain(rows *sql.Rows) (*Rows, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns failed")
	}

	result := &Rows{Columns: columns}
	for rows.Next() {
		cells := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range cells {
			dests[i] = &cells[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, errors.Wrap(err, "scan row failed")
		}
		result.Values = append(result.Values, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows failed")
	}
	return result, nil
}

func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.Query(ctx, sqlgen.Statement{
		SQL: "select name from sqlite_master where type = 'table' and name not like 'sqlite\\_%' escape '\\' order by name;",
	})
	if err != nil {
		return nil, errors.Wrap(ErrCatalogIntrospection, err.Error())
	}

	tables := make([]string, 0, rows.Len())
	for _, row := range rows.Values {
		tables = append(tables, text(row[0]))
	}
	return tables, nil
}

func (s *SQLite) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.Query(ctx, sqlgen.Statement{
		SQL:  "select name, type from pragma_table_info(?) order by cid;",
		Args: []any{table},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrCatalogIntrospection, "columns of %s: %v", table, err)
	}

	columns := make([]Column, 0, rows.Len())
	for _, row := range rows.Values {
		columns = append(columns, Column{Name: text(row[0]), Type: strings.ToLower(text(row[1]))})
	}
	return columns, nil
}

func (s *SQLite) Indexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := s.Query(ctx, sqlgen.Statement{
		SQL: "select il.name, ii.name from pragma_index_list(?) as il, pragma_index_info(il.name) as ii " +
			"where il.origin = 'c' order by il.name, ii.seqno;",
		Args: []any{table},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrCatalogIntrospection, "indexes of %s: %v", table, err)
	}

	// 多列索引每列一行，按索引名合并
	indexes := make([]Index, 0, rows.Len())
	for _, row := range rows.Values {
		name := text(row[0])
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, text(row[1]))
			continue
		}
		indexes = append(indexes, Index{Name: name, Table: table, Columns: []string{text(row[1])}})
	}
	return indexes, nil
}

// Close 可以重复调用，只有第一次真正关闭连接
func (s *SQLite) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *SQLite) translate(err error) error {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "sql: database is closed") {
		return errors.Wrap(ErrClosed, err.Error())
	}
	return err
}

func text(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
