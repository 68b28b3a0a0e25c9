package model

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Projection 解析 select 列表，返回需要解码的属性名集合
// 空列表或包含 * 时返回 nil，表示解码全部属性
func Projection(columns []string) map[string]bool {
	if len(columns) == 0 {
		return nil
	}
	selected := make(map[string]bool, len(columns))
	for _, column := range columns {
		for _, c := range strings.Split(column, ",") {
			c = strings.TrimSpace(c)
			if c == "*" {
				return nil
			}
			if c != "" {
				selected[c] = true
			}
		}
	}
	return selected
}

// DecodeRow 把一行结果解码为新建的记录，返回记录指针
// selected 非空时只解码其中的属性，其余属性保持零值
func (d *Descriptor) DecodeRow(columns []string, cells []any, selected map[string]bool, codec Codec) (reflect.Value, error) {
	if len(columns) != len(cells) {
		return reflect.Value{}, errors.Errorf("got %d columns but %d cells", len(columns), len(cells))
	}

	position := make(map[string]int, len(columns))
	for i, column := range columns {
		position[column] = i
	}

	record := d.New()
	for _, attr := range d.Attributes {
		if selected != nil && !selected[attr.Name] {
			continue
		}
		i, ok := position[attr.Name]
		if !ok {
			if selected != nil {
				continue
			}
			return reflect.Value{}, errors.Errorf("column %q of table %s not found in result", attr.Name, d.Table)
		}
		if err := Decode(cells[i], record, attr, codec); err != nil {
			return reflect.Value{}, err
		}
	}
	return record, nil
}

// SetInt 设置整数属性的值，属性不存在时忽略，用于维护 id 和时间戳
func (d *Descriptor) SetInt(record reflect.Value, name string, value int64) {
	attr, ok := d.byName[name]
	if !ok || !attr.Kind.IsInteger() {
		return
	}
	fv := attr.Value(reflect.Indirect(record))
	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		elem.Elem().SetInt(value)
		fv.Set(elem)
		return
	}
	fv.SetInt(value)
}

// GetInt 读取整数属性的值，属性不存在或为 null 时返回 0
func (d *Descriptor) GetInt(record reflect.Value, name string) int64 {
	attr, ok := d.byName[name]
	if !ok || !attr.Kind.IsInteger() {
		return 0
	}
	fv := attr.Value(reflect.Indirect(record))
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return 0
		}
		fv = fv.Elem()
	}
	return fv.Int()
}
