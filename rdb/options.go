package rdb

import (
	"github.com/hatlonely/liteorm/log"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	// Driver sqlite 为纯 Go 实现，sqlite3 为基于 cgo 的 go-sqlite3
	Driver string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite sqlite3"`
	// Path 数据库文件路径，父目录不存在时自动创建
	Path string `cfg:"path" def:":memory:"`
	// DSN 不为空时直接传给驱动，忽略 Path
	DSN      string `cfg:"dsn"`
	MaxConns int    `cfg:"maxConns" def:"1" validate:"gte=1"`

	// Codec json 属性的编码方式：json, msgpack
	Codec string `cfg:"codec" def:"json" validate:"oneof=json msgpack"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`
	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"liteorm"`

	Logger *log.Options `cfg:"logger"`

	Registerer prometheus.Registerer `cfg:"-"`
}
