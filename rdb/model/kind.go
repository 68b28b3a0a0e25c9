package model

import "reflect"

// Kind 属性的值类别，决定列类型以及读写方式
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindText
	KindBool
	KindJSON
)

// SQL 列类型
const (
	SQLTypeInteger = "integer"
	SQLTypeReal    = "real"
	SQLTypeText    = "text"
	SQLTypeBlob    = "blob"
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindJSON:
		return "json"
	default:
		return "invalid"
	}
}

// SQLType 布尔值按 0/1 存在 blob 列中，json 属性统一存为 text
func (k Kind) SQLType() string {
	switch k {
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64:
		return SQLTypeInteger
	case KindFloat32, KindFloat64:
		return SQLTypeReal
	case KindText, KindJSON:
		return SQLTypeText
	case KindBool:
		return SQLTypeBlob
	default:
		return ""
	}
}

func (k Kind) IsInteger() bool {
	return k >= KindInt && k <= KindInt64
}

func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// kindOf 根据 Go 类型推断属性类别，指针类型按其元素类型推断
func kindOf(t reflect.Type) Kind {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int:
		return KindInt
	case reflect.Int8:
		return KindInt8
	case reflect.Int16:
		return KindInt16
	case reflect.Int32:
		return KindInt32
	case reflect.Int64:
		return KindInt64
	case reflect.Float32:
		return KindFloat32
	case reflect.Float64:
		return KindFloat64
	case reflect.String:
		return KindText
	case reflect.Bool:
		return KindBool
	default:
		return KindInvalid
	}
}
