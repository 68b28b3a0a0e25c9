package rdb

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hatlonely/liteorm/cfg"
	"github.com/hatlonely/liteorm/log"
	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/schema"
	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/hatlonely/liteorm/ref"
	"github.com/pkg/errors"
)

// DB 数据库连接句柄
// 写操作和表结构同步由同一把锁串行执行，读操作不加锁
type DB struct {
	executor database.Executor
	codec    model.Codec
	logger   log.Logger
	// ownedLogger 由 DB 创建的日志器，随 DB 一起关闭
	ownedLogger *log.SLog

	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open 以默认配置打开 path 对应的数据库
func Open(path string) (*DB, error) {
	return NewDBWithOptions(&Options{Path: path})
}

// OpenConfigFile 从配置文件加载 Options 并打开数据库
func OpenConfigFile(path string) (*DB, error) {
	var options Options
	if err := cfg.LoadFile(path, &options); err != nil {
		return nil, errors.WithMessage(err, "load options failed")
	}
	return NewDBWithOptions(&options)
}

func NewDBWithOptions(options *Options) (*DB, error) {
	if options == nil {
		options = &Options{}
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "set default options failed")
	}
	if err := cfg.Validate(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}

	codec, err := model.NewCodec(options.Codec)
	if err != nil {
		return nil, err
	}

	db := &DB{codec: codec, logger: log.Default()}
	if options.Logger != nil {
		l, err := log.NewLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		db.logger, db.ownedLogger = l, l
	}

	executor, err := database.NewExecutorWithOptions(&ref.TypeOptions{
		Namespace: database.Namespace,
		Type:      "SQLite",
		Options: &database.SQLiteOptions{
			Driver:   options.Driver,
			Path:     options.Path,
			DSN:      options.DSN,
			MaxConns: options.MaxConns,
		},
	})
	if err != nil {
		db.closeLogger()
		return nil, err
	}

	if options.EnableMetrics || options.EnableLogging || options.EnableTracing {
		obs, err := database.NewObservableExecutor(executor, &database.ObservableExecutorOptions{
			EnableMetrics: options.EnableMetrics,
			EnableLogging: options.EnableLogging,
			EnableTracing: options.EnableTracing,
			Name:          options.Name,
			Registerer:    options.Registerer,
		}, db.logger)
		if err != nil {
			_ = executor.Close()
			db.closeLogger()
			return nil, err
		}
		db.executor = obs
	} else {
		db.executor = executor
	}

	db.logger.Info("database opened", "driver", options.Driver, "path", options.Path, "codec", options.Codec)
	return db, nil
}

func (db *DB) Executor() database.Executor {
	return db.executor
}

func (db *DB) Codec() model.Codec {
	return db.codec
}

func (db *DB) Logger() log.Logger {
	return db.logger
}

// Sync 把记录类型同步到数据库，参数可以是结构体、结构体指针或 reflect.Type，返回已执行的语句
// 不在参数中的类型的索引会被删除
func (db *DB) Sync(ctx context.Context, types ...any) ([]sqlgen.Statement, error) {
	descriptors, err := describeAll(types)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return schema.NewSynchronizer(db.executor, db.logger).Sync(ctx, descriptors...)
}

// Plan 返回 Sync 将要执行的语句，不修改数据库
func (db *DB) Plan(ctx context.Context, types ...any) ([]sqlgen.Statement, error) {
	descriptors, err := describeAll(types)
	if err != nil {
		return nil, err
	}
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return schema.NewSynchronizer(db.executor, db.logger).Plan(ctx, descriptors...)
}

func (db *DB) Snapshot(ctx context.Context) (*schema.Snapshot, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return schema.TakeSnapshot(ctx, db.executor)
}

// Drop 删除记录类型对应的表
func (db *DB) Drop(ctx context.Context, types ...any) error {
	descriptors, err := describeAll(types)
	if err != nil {
		return err
	}
	for _, d := range descriptors {
		if _, err := db.exec(ctx, sqlgen.Drop(d)); err != nil {
			return err
		}
		db.logger.InfoContext(ctx, "table dropped", "table", d.Table)
	}
	return nil
}

// Version 数据库引擎的版本，查询不到时返回 unknown
func (db *DB) Version(ctx context.Context) (string, error) {
	rows, err := db.query(ctx, sqlgen.Statement{SQL: "select sqlite_version();"})
	if err != nil {
		return "", err
	}
	if rows.Len() == 0 || rows.Values[0][0] == nil {
		return "unknown", nil
	}
	switch v := rows.Values[0][0].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "unknown", nil
}

// Close 关闭连接，可以重复调用
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.mu.Lock()
		defer db.mu.Unlock()

		db.closed.Store(true)
		db.closeErr = db.executor.Close()
		db.logger.Info("database closed")
		db.closeLogger()
	})
	return db.closeErr
}

func (db *DB) closeLogger() {
	if db.ownedLogger != nil {
		_ = db.ownedLogger.Close()
	}
}

func (db *DB) checkOpen() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return nil
}

// exec 执行写语句，持有写锁
func (db *DB) exec(ctx context.Context, stmt sqlgen.Statement) (database.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return database.Result{}, err
	}
	return db.executor.Exec(ctx, stmt)
}

func (db *DB) query(ctx context.Context, stmt sqlgen.Statement) (*database.Rows, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.executor.Query(ctx, stmt)
}

func describeAll(types []any) ([]*model.Descriptor, error) {
	descriptors := make([]*model.Descriptor, 0, len(types))
	for _, t := range types {
		d, err := model.Describe(t)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
