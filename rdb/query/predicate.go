package query

import (
	"reflect"
	"strings"

	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/pkg/errors"
)

var ErrMalformedOptions = errors.New("malformed options")

// Compile 规范化条件表达式并展开参数
// 引号外的 && 和 || 改写为 and 和 or；切片参数展开为多个占位符，空切片展开为 null；布尔参数转换为 1/0
// 占位符数量与参数数量不一致时返回 ErrMalformedOptions
func Compile(predicate string, args ...any) (string, []any, error) {
	var buf strings.Builder
	var out []any
	n := 0
	quote := rune(0)

	runes := []rune(predicate)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if quote != 0 {
			buf.WriteRune(c)
			if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"':
			quote = c
			buf.WriteRune(c)
		case c == '&' && i+1 < len(runes) && runes[i+1] == '&':
			buf.WriteString("and")
			i++
		case c == '|' && i+1 < len(runes) && runes[i+1] == '|':
			buf.WriteString("or")
			i++
		case c == '?':
			if n >= len(args) {
				return "", nil, errors.Wrapf(ErrMalformedOptions, "predicate %q has more placeholders than %d args", predicate, len(args))
			}
			values := expand(args[n])
			n++
			if len(values) == 0 {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "))
			out = append(out, values...)
		default:
			buf.WriteRune(c)
		}
	}

	if quote != 0 {
		return "", nil, errors.Wrapf(ErrMalformedOptions, "predicate %q has an unterminated quote", predicate)
	}
	if n != len(args) {
		return "", nil, errors.Wrapf(ErrMalformedOptions, "predicate %q has %d placeholders but %d args", predicate, n, len(args))
	}
	return buf.String(), out, nil
}

// expand 把一个参数转换为绑定值列表，[]byte 作为单个值
func expand(arg any) []any {
	switch v := arg.(type) {
	case nil:
		return []any{nil}
	case []byte:
		return []any{v}
	case bool:
		return []any{boolValue(v)}
	}

	rv := reflect.ValueOf(arg)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{arg}
	}
	values := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if b, ok := elem.(bool); ok {
			elem = boolValue(b)
		}
		values = append(values, elem)
	}
	return values
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Inline 把参数以字面量形式代入占位符，用于日志、预览和测试，不用于执行
func Inline(sql string, args []any) string {
	var buf strings.Builder
	n := 0
	quote := rune(0)
	for _, c := range sql {
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			buf.WriteRune(c)
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			buf.WriteRune(c)
		case c == '?' && n < len(args):
			buf.WriteString(model.Literal(args[n]))
			n++
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}
