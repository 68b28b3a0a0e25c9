package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedAttributeType = errors.New("unsupported attribute type")
	ErrMissingPrimaryKey        = errors.New("missing primary key")
	ErrDuplicateAttribute       = errors.New("duplicate attribute")
	ErrNoPersistableAttributes  = errors.New("no persistable attributes")
	ErrInvalidRecordType        = errors.New("invalid record type")
)

// Attribute 一个持久化属性的元数据
type Attribute struct {
	// Name 列名，默认为字段名，可以通过 rdb tag 的第一段指定
	Name  string
	Field string
	Kind  Kind
	Index bool
	JSON  bool
	// Nullable 字段为指针类型，nil 对应 SQL 的 null
	Nullable bool

	path []int
	typ  reflect.Type
}

func (a *Attribute) SQLType() string {
	return a.Kind.SQLType()
}

// Type 字段声明的 Go 类型
func (a *Attribute) Type() reflect.Type {
	return a.typ
}

// Value 取出 record 中该属性对应的字段，record 必须是结构体值
func (a *Attribute) Value(record reflect.Value) reflect.Value {
	return record.FieldByIndex(a.path)
}

// Descriptor 记录类型的元数据，每个类型只解析一次
type Descriptor struct {
	Type       reflect.Type
	Table      string
	Attributes []*Attribute
	// Indexes 需要建立单列索引的列名
	Indexes []string

	byName map[string]*Attribute
}

func (d *Descriptor) Attribute(name string) (*Attribute, bool) {
	a, ok := d.byName[name]
	return a, ok
}

func (d *Descriptor) Columns() []string {
	columns := make([]string, 0, len(d.Attributes))
	for _, a := range d.Attributes {
		columns = append(columns, a.Name)
	}
	return columns
}

// IndexName 索引命名规则 idx_<table>_<column>
func (d *Descriptor) IndexName(column string) string {
	return IndexName(d.Table, column)
}

func IndexName(table, column string) string {
	return fmt.Sprintf("idx_%s_%s", table, column)
}

// New 创建一个该类型的零值记录，返回指针
func (d *Descriptor) New() reflect.Value {
	return reflect.New(d.Type)
}

var descriptors sync.Map

// Of 获取类型 T 的元数据
func Of[T any]() (*Descriptor, error) {
	return DescribeType(reflect.TypeOf((*T)(nil)).Elem())
}

// Describe 获取 v 的类型对应的元数据，v 可以是结构体、结构体指针或 reflect.Type
func Describe(v any) (*Descriptor, error) {
	if t, ok := v.(reflect.Type); ok {
		return DescribeType(t)
	}
	if v == nil {
		return nil, errors.Wrap(ErrInvalidRecordType, "nil value")
	}
	return DescribeType(reflect.TypeOf(v))
}

func MustDescribe(v any) *Descriptor {
	d, err := Describe(v)
	if err != nil {
		panic(err)
	}
	return d
}

func DescribeType(t reflect.Type) (*Descriptor, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := descriptors.Load(t); ok {
		return cached.(*Descriptor), nil
	}

	d, err := buildDescriptor(t)
	if err != nil {
		return nil, err
	}
	actual, _ := descriptors.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

func buildDescriptor(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrInvalidRecordType, "expected struct, got %v", t)
	}
	if t.Name() == "" {
		return nil, errors.Wrap(ErrInvalidRecordType, "anonymous struct has no table name")
	}

	d := &Descriptor{
		Type:   t,
		Table:  strings.ToLower(t.Name()),
		byName: map[string]*Attribute{},
	}
	if err := d.collect(t, nil); err != nil {
		return nil, errors.WithMessagef(err, "describe %v", t)
	}

	id, ok := d.byName[ColumnID]
	if !ok || !id.Kind.IsInteger() {
		return nil, errors.Wrapf(ErrMissingPrimaryKey, "%v must declare an integer %q attribute, embed model.Model", t, ColumnID)
	}
	return d, nil
}

// collect 按声明顺序遍历字段，匿名嵌入的结构体视为父类型，其字段原位展开
func (d *Descriptor) collect(t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int{}, parent...), i)

		tag, hasTag := field.Tag.Lookup("rdb")
		name, flags := parseTag(field.Name, tag)
		if flags.ignore {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !hasTag {
			if err := d.collect(field.Type, path); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		attr := &Attribute{
			Name:     name,
			Field:    field.Name,
			Index:    flags.index,
			JSON:     flags.json,
			Nullable: field.Type.Kind() == reflect.Ptr,
			path:     path,
			typ:      field.Type,
		}
		if flags.json {
			attr.Kind = KindJSON
		} else if attr.Kind = kindOf(field.Type); attr.Kind == KindInvalid {
			return errors.Wrapf(ErrUnsupportedAttributeType, "field %s has type %v", field.Name, field.Type)
		}

		if _, ok := d.byName[attr.Name]; ok {
			return errors.Wrapf(ErrDuplicateAttribute, "column %q", attr.Name)
		}
		d.byName[attr.Name] = attr
		d.Attributes = append(d.Attributes, attr)
		if attr.Index {
			d.Indexes = append(d.Indexes, attr.Name)
		}
	}
	return nil
}

type tagFlags struct {
	ignore bool
	index  bool
	json   bool
}

// parseTag 解析 rdb tag，格式为 `rdb:"name,index,json"`，`rdb:"-"` 表示忽略该字段
func parseTag(fieldName, tag string) (string, tagFlags) {
	var flags tagFlags
	if tag == "-" {
		flags.ignore = true
		return fieldName, flags
	}

	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = fieldName
	}
	for _, part := range parts[1:] {
		switch strings.TrimSpace(part) {
		case "index":
			flags.index = true
		case "json":
			flags.json = true
		case "ignore":
			flags.ignore = true
		}
	}
	return name, flags
}
