package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TermQuery 精确匹配查询，Value 为 nil 时匹配 null
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToSQL() (string, []any, error) {
	if q.Field == "" {
		return "", nil, errors.Wrap(ErrMalformedOptions, "term query without field")
	}
	if q.Value == nil {
		return fmt.Sprintf("%s is null", q.Field), nil, nil
	}
	return fmt.Sprintf("%s = ?", q.Field), []any{q.Value}, nil
}

// TermsQuery 多值匹配查询，编译为 in 表达式
type TermsQuery struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

func (q *TermsQuery) Type() QueryType {
	return QueryTypeTerms
}

func (q *TermsQuery) ToSQL() (string, []any, error) {
	if q.Field == "" {
		return "", nil, errors.Wrap(ErrMalformedOptions, "terms query without field")
	}
	// 空集合不匹配任何行
	if len(q.Values) == 0 {
		return "0 = 1", nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Values)), ", ")
	return fmt.Sprintf("%s in (%s)", q.Field, placeholders), append([]any{}, q.Values...), nil
}
