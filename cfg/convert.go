package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Node 配置树上的一个节点，实现 ref.Convertable，
// 结构体中类型为 any 的字段会收到 *Node，交给下游构造函数按需转换
type Node struct {
	data any
}

func NewNode(data any) *Node {
	return &Node{data: data}
}

func (n *Node) Data() any {
	return n.data
}

// Sub 按点号分隔的路径获取子节点，不存在时返回空节点
func (n *Node) Sub(key string) *Node {
	if key == "" {
		return n
	}
	current := n.data
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return NewNode(nil)
		}
		current = m[part]
	}
	return NewNode(current)
}

// ConvertTo 将节点数据转换为 object 指向的结构体、map 或 slice，转换后应用 def 默认值
func (n *Node) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := convertValue(n.data, rv.Elem()); err != nil {
		return err
	}
	return SetDefaults(object)
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	nodeType     = reflect.TypeOf((*Node)(nil))
)

func convertValue(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	if dst.Kind() == reflect.Interface {
		if dst.Type().NumMethod() == 0 {
			dst.Set(reflect.ValueOf(NewNode(src)))
			return nil
		}
		if nodeType.Implements(dst.Type()) {
			dst.Set(reflect.ValueOf(NewNode(src)))
			return nil
		}
		return errors.Errorf("cannot convert %T to %v", src, dst.Type())
	}

	if dst.Type() == durationType {
		return convertDuration(src, dst)
	}

	sv := reflect.ValueOf(src)
	switch dst.Kind() {
	case reflect.Struct:
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("cannot convert %T to struct %v", src, dst.Type())
		}
		return convertStruct(m, dst)
	case reflect.Map:
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("cannot convert %T to map %v", src, dst.Type())
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		for k, v := range m {
			item := reflect.New(dst.Type().Elem()).Elem()
			if dst.Type().Elem().Kind() == reflect.Interface && dst.Type().Elem().NumMethod() == 0 {
				// map 的值保留原始数据
				item.Set(reflect.ValueOf(v))
			} else if err := convertValue(v, item); err != nil {
				return errors.WithMessagef(err, "key %q", k)
			}
			dst.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), item)
		}
		return nil
	case reflect.Slice:
		items, ok := src.([]any)
		if !ok {
			return errors.Errorf("cannot convert %T to slice %v", src, dst.Type())
		}
		slice := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, v := range items {
			if err := convertValue(v, slice.Index(i)); err != nil {
				return errors.WithMessagef(err, "index %d", i)
			}
		}
		dst.Set(slice)
		return nil
	case reflect.String:
		switch v := src.(type) {
		case string:
			dst.SetString(v)
		default:
			dst.SetString(toString(v))
		}
		return nil
	case reflect.Bool:
		switch v := src.(type) {
		case bool:
			dst.SetBool(v)
			return nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "invalid bool %q", v)
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, ok := src.(string); ok {
			i, err := strconv.ParseInt(v, 0, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "invalid int %q", v)
			}
			dst.SetInt(i)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if v, ok := src.(string); ok {
			f, err := strconv.ParseFloat(v, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "invalid float %q", v)
			}
			dst.SetFloat(f)
			return nil
		}
	}

	if sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() != reflect.String {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("cannot convert %T to %v", src, dst.Type())
}

// convertStruct 字段名优先取 cfg tag，其次是字段名，匹配时忽略大小写
func convertStruct(src map[string]any, dst reflect.Value) error {
	dt := dst.Type()
	for i := 0; i < dt.NumField(); i++ {
		field := dt.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Tag.Get("cfg") == "" {
			if err := convertValue(src, dst.Field(i)); err != nil {
				return err
			}
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("cfg"); tag != "" {
			if tag == "-" {
				continue
			}
			name = strings.Split(tag, ",")[0]
		}

		value, ok := lookup(src, name)
		if !ok {
			continue
		}
		if err := convertValue(value, dst.Field(i)); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}
	return nil
}

func lookup(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func convertDuration(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "failed to parse duration %q", v)
		}
		dst.SetInt(int64(d))
	case int64:
		dst.SetInt(v)
	case int:
		dst.SetInt(int64(v))
	case float64:
		// 浮点数视为秒
		dst.SetInt(int64(v * float64(time.Second)))
	default:
		return errors.Errorf("cannot convert %T to time.Duration", src)
	}
	return nil
}
