package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hatlonely/liteorm/log"
	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/hatlonely/liteorm/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableExecutorOptions struct {
	// Executor 被包装的底层执行器配置
	Executor ref.TypeOptions `cfg:"executor"`

	// Logger 日志配置，为空时使用默认日志器
	Logger *log.Options `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`

	// Name 组件名称，作为指标名前缀、日志的 component 字段以及 span 的 component 属性
	Name string `cfg:"name" def:"liteorm"`

	// Registerer 指标注册表，为空时使用 prometheus 默认注册表
	Registerer prometheus.Registerer `cfg:"-"`
}

// ObservableMetrics 语句执行指标
type ObservableMetrics struct {
	statementCounter  *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	activeStatements  *prometheus.GaugeVec
	rowsHistogram     *prometheus.HistogramVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	metrics := &ObservableMetrics{
		statementCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_statements_total",
				Help: "Total number of executed statements",
			},
			[]string{"operation", "status"},
		),
		statementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_statement_duration_seconds",
				Help:    "Duration of statements in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		activeStatements: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_statements",
				Help: "Number of statements in flight",
			},
			[]string{"operation"},
		),
		rowsHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_statement_rows",
				Help:    "Rows returned or affected by a statement",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000},
			},
			[]string{"operation"},
		),
	}

	var err error
	if metrics.statementCounter, err = register(registerer, metrics.statementCounter); err != nil {
		return nil, err
	}
	if metrics.statementDuration, err = register(registerer, metrics.statementDuration); err != nil {
		return nil, err
	}
	if metrics.activeStatements, err = register(registerer, metrics.activeStatements); err != nil {
		return nil, err
	}
	if metrics.rowsHistogram, err = register(registerer, metrics.rowsHistogram); err != nil {
		return nil, err
	}
	return metrics, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	if err := registerer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, errors.Wrap(err, "register metrics failed")
	}
	return collector, nil
}

// ObservableExecutor 装饰器，为任何 Executor 添加指标、日志和追踪
type ObservableExecutor struct {
	executor Executor

	logger log.Logger
	// ownedLogger 根据 options.Logger 创建的日志器，随执行器一起关闭
	ownedLogger *log.SLog
	closeOnce   sync.Once
	closeErr    error

	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableExecutorWithOptions(options *ObservableExecutorOptions) (*ObservableExecutor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	executor, err := NewExecutorWithOptions(&options.Executor)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying executor")
	}

	var logger log.Logger
	var owned *log.SLog
	if options.EnableLogging && options.Logger != nil {
		owned, err = log.NewLogWithOptions(options.Logger)
		if err != nil {
			_ = executor.Close()
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		logger = owned
	}

	obs, err := NewObservableExecutor(executor, options, logger)
	if err != nil {
		_ = executor.Close()
		if owned != nil {
			_ = owned.Close()
		}
		return nil, err
	}
	obs.ownedLogger = owned
	return obs, nil
}

// NewObservableExecutor 包装已有的执行器，logger 为空时使用默认日志器，options 中的 Executor 字段被忽略
func NewObservableExecutor(executor Executor, options *ObservableExecutorOptions, logger log.Logger) (*ObservableExecutor, error) {
	if options == nil {
		options = &ObservableExecutorOptions{}
	}
	name := options.Name
	if name == "" {
		name = "liteorm"
	}

	obs := &ObservableExecutor{
		executor:      executor,
		name:          name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		if logger == nil {
			logger = log.Default()
		}
		obs.logger = logger.WithGroup("observableExecutor")
	}

	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(name, options.Registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("rdb.%s", name))
	}

	return obs, nil
}

// Unwrap 返回被包装的执行器
func (obs *ObservableExecutor) Unwrap() Executor {
	return obs.executor
}

// observe 统一的观测逻辑，fn 返回语句影响或返回的行数
func (obs *ObservableExecutor) observe(ctx context.Context, operation string, stmt sqlgen.Statement, fn func(context.Context) (int64, error)) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("rdb.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("db.system", "sqlite"),
				attribute.String("db.statement", stmt.SQL),
			),
		)
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeStatements.WithLabelValues(operation).Inc()
		defer obs.metrics.activeStatements.WithLabelValues(operation).Dec()
	}

	rows, err := fn(ctx)
	duration := time.Since(start)

	if obs.enableTracing && span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.Int64("rows", rows),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.statementCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.statementDuration.WithLabelValues(operation).Observe(duration.Seconds())
		if err == nil {
			obs.metrics.rowsHistogram.WithLabelValues(operation).Observe(float64(rows))
		}
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "statement failed",
				"component", obs.name,
				"operation", operation,
				"sql", stmt.Inline(),
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "statement completed",
				"component", obs.name,
				"operation", operation,
				"sql", stmt.Inline(),
				"rows", rows,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

// operationOf 语句的首个关键字，用作指标标签
func operationOf(stmt sqlgen.Statement) string {
	sql := strings.TrimSpace(stmt.SQL)
	if i := strings.IndexAny(sql, " \t\n;"); i > 0 {
		sql = sql[:i]
	}
	return strings.ToLower(sql)
}

func (obs *ObservableExecutor) Exec(ctx context.Context, stmt sqlgen.Statement) (Result, error) {
	var result Result
	err := obs.observe(ctx, operationOf(stmt), stmt, func(ctx context.Context) (int64, error) {
		var err error
		result, err = obs.executor.Exec(ctx, stmt)
		return result.RowsAffected, err
	})
	return result, err
}

func (obs *ObservableExecutor) Query(ctx context.Context, stmt sqlgen.Statement) (*Rows, error) {
	var rows *Rows
	err := obs.observe(ctx, operationOf(stmt), stmt, func(ctx context.Context) (int64, error) {
		var err error
		rows, err = obs.executor.Query(ctx, stmt)
		return int64(rows.Len()), err
	})
	return rows, err
}

func (obs *ObservableExecutor) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	err := obs.observe(ctx, "tables", sqlgen.Statement{SQL: "tables"}, func(ctx context.Context) (int64, error) {
		var err error
		tables, err = obs.executor.Tables(ctx)
		return int64(len(tables)), err
	})
	return tables, err
}

func (obs *ObservableExecutor) Columns(ctx context.Context, table string) ([]Column, error) {
	var columns []Column
	err := obs.observe(ctx, "columns", sqlgen.Statement{SQL: "columns " + table}, func(ctx context.Context) (int64, error) {
		var err error
		columns, err = obs.executor.Columns(ctx, table)
		return int64(len(columns)), err
	})
	return columns, err
}

func (obs *ObservableExecutor) Indexes(ctx context.Context, table string) ([]Index, error) {
	var indexes []Index
	err := obs.observe(ctx, "indexes", sqlgen.Statement{SQL: "indexes " + table}, func(ctx context.Context) (int64, error) {
		var err error
		indexes, err = obs.executor.Indexes(ctx, table)
		return int64(len(indexes)), err
	})
	return indexes, err
}

// Close 关闭被包装的执行器以及自己创建的日志器，可以重复调用
func (obs *ObservableExecutor) Close() error {
	obs.closeOnce.Do(func() {
		obs.closeErr = obs.executor.Close()
		if obs.ownedLogger != nil {
			if err := obs.ownedLogger.Close(); err != nil && obs.closeErr == nil {
				obs.closeErr = errors.Wrap(err, "close logger failed")
			}
		}
	})
	return obs.closeErr
}
