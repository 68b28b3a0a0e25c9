package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// likeEscaper 转义 like 模式中的元字符，配合 escape '\' 使用
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PrefixQuery 前缀匹配查询
type PrefixQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) ToSQL() (string, []any, error) {
	if q.Field == "" {
		return "", nil, errors.Wrap(ErrMalformedOptions, "prefix query without field")
	}
	return fmt.Sprintf(`%s like ? escape '\'`, q.Field), []any{likeEscaper.Replace(q.Value) + "%"}, nil
}

// WildcardQuery 通配符查询，* 匹配任意数量字符，? 匹配单个字符
type WildcardQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) ToSQL() (string, []any, error) {
	if q.Field == "" {
		return "", nil, errors.Wrap(ErrMalformedOptions, "wildcard query without field")
	}
	pattern := likeEscaper.Replace(q.Value)
	pattern = strings.ReplaceAll(pattern, "*", "%")
	pattern = strings.ReplaceAll(pattern, "?", "_")
	return fmt.Sprintf(`%s like ? escape '\'`, q.Field), []any{pattern}, nil
}
