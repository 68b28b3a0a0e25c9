package model

import (
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Encode 把记录中属性的值转换为绑定参数
// nil 指针、nil slice/map 编码为 nil，布尔值编码为 1/0，json 属性交给 codec
func Encode(record reflect.Value, attr *Attribute, codec Codec) (any, error) {
	record = reflect.Indirect(record)
	fv := attr.Value(record)

	if attr.Kind == KindJSON {
		switch fv.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
			if fv.IsNil() {
				return nil, nil
			}
		}
		v, err := codec.Marshal(fv.Interface())
		if err != nil {
			return nil, errors.WithMessagef(err, "encode attribute %s", attr.Name)
		}
		return v, nil
	}

	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}

	switch {
	case attr.Kind.IsInteger():
		return fv.Int(), nil
	case attr.Kind.IsFloat():
		return fv.Float(), nil
	case attr.Kind == KindText:
		return fv.String(), nil
	case attr.Kind == KindBool:
		if fv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedAttributeType, "attribute %s", attr.Name)
	}
}

// IsNull 判断属性当前值是否为 null
func IsNull(record reflect.Value, attr *Attribute) bool {
	fv := attr.Value(reflect.Indirect(record))
	switch fv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return fv.IsNil()
	}
	return false
}

// Decode 把结果集中的一个单元格写回记录的属性，null 保持零值
func Decode(cell any, record reflect.Value, attr *Attribute, codec Codec) error {
	if cell == nil {
		return nil
	}

	fv := attr.Value(reflect.Indirect(record))
	if attr.Kind == KindJSON {
		data, ok := bytesOf(cell)
		if !ok {
			return errors.Errorf("attribute %s: cannot decode json from %T", attr.Name, cell)
		}
		target := reflect.New(fv.Type())
		if err := codec.Unmarshal(data, target.Interface()); err != nil {
			return errors.WithMessagef(err, "decode attribute %s", attr.Name)
		}
		fv.Set(target.Elem())
		return nil
	}

	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		if err := decodeScalar(cell, elem.Elem(), attr); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}
	return decodeScalar(cell, fv, attr)
}

func decodeScalar(cell any, fv reflect.Value, attr *Attribute) error {
	switch {
	case attr.Kind.IsInteger():
		n, err := toInt64(cell)
		if err != nil {
			return errors.WithMessagef(err, "attribute %s", attr.Name)
		}
		if fv.OverflowInt(n) {
			return errors.Errorf("attribute %s: value %d overflows %v", attr.Name, n, fv.Type())
		}
		fv.SetInt(n)
	case attr.Kind.IsFloat():
		f, err := toFloat64(cell)
		if err != nil {
			return errors.WithMessagef(err, "attribute %s", attr.Name)
		}
		if fv.OverflowFloat(f) {
			return errors.Errorf("attribute %s: value %v overflows %v", attr.Name, f, fv.Type())
		}
		fv.SetFloat(f)
	case attr.Kind == KindText:
		switch v := cell.(type) {
		case string:
			fv.SetString(v)
		case []byte:
			fv.SetString(string(v))
		default:
			fv.SetString(fmt.Sprint(v))
		}
	case attr.Kind == KindBool:
		b, err := toBool(cell)
		if err != nil {
			return errors.WithMessagef(err, "attribute %s", attr.Name)
		}
		fv.SetBool(b)
	default:
		return errors.Wrapf(ErrUnsupportedAttributeType, "attribute %s", attr.Name)
	}
	return nil
}

func bytesOf(cell any) ([]byte, bool) {
	switch v := cell.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}

func toInt64(cell any) (int64, error) {
	switch v := cell.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Errorf("cannot convert %v to integer", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, errors.Errorf("cannot convert %T to integer", cell)
}

func toFloat64(cell any) (float64, error) {
	switch v := cell.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, errors.Errorf("cannot convert %T to real", cell)
}

func toBool(cell any) (bool, error) {
	switch v := cell.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	return false, errors.Errorf("cannot convert %T to bool", cell)
}

// Literal 把绑定参数渲染为 SQL 字面量，仅用于日志和预览
// 文本中的单引号会被转义为两个单引号
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(val)) + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(val.String(), "'", "''") + "'"
	default:
		return fmt.Sprint(val)
	}
}
