package model

import (
	"encoding/json"

	"github.com/hatlonely/liteorm/ref"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const Namespace = "github.com/hatlonely/liteorm/rdb/model"

func init() {
	ref.MustRegister(Namespace, "JSONCodec", NewJSONCodec)
	ref.MustRegister(Namespace, "MsgpackCodec", NewMsgpackCodec)
}

// Codec json 属性的编解码器，对映射层是不透明的
// Marshal 的返回值直接作为绑定参数写入数据库
type Codec interface {
	Marshal(v any) (any, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec 编码为 JSON 文本
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) Marshal(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "json marshal failed")
	}
	return string(data), nil
}

func (c *JSONCodec) Unmarshal(data []byte, v any) error {
	return errors.Wrap(json.Unmarshal(data, v), "json unmarshal failed")
}

// MsgpackCodec 编码为 msgpack 二进制，列的声明类型仍为 text，由 SQLite 按 blob 存储
type MsgpackCodec struct{}

func NewMsgpackCodec() *MsgpackCodec {
	return &MsgpackCodec{}
}

func (c *MsgpackCodec) Marshal(v any) (any, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack marshal failed")
	}
	return data, nil
}

func (c *MsgpackCodec) Unmarshal(data []byte, v any) error {
	return errors.Wrap(msgpack.Unmarshal(data, v), "msgpack unmarshal failed")
}

// NewCodec 按名称创建编解码器，支持 json 和 msgpack
func NewCodec(name string) (Codec, error) {
	var typ string
	switch name {
	case "", "json":
		typ = "JSONCodec"
	case "msgpack":
		typ = "MsgpackCodec"
	default:
		return nil, errors.Errorf("unsupported codec: %s", name)
	}

	obj, err := ref.New(Namespace, typ, nil)
	if err != nil {
		return nil, err
	}
	return obj.(Codec), nil
}
