package query

import (
	"fmt"
	"strings"
)

// BoolQuery 布尔组合查询
// Must 和 Filter 中的条件全部满足，Should 至少满足 MinShouldMatch 个（默认 1 个），MustNot 全部不满足
type BoolQuery struct {
	Must           []Query `json:"must,omitempty"`
	Should         []Query `json:"should,omitempty"`
	MustNot        []Query `json:"must_not,omitempty"`
	Filter         []Query `json:"filter,omitempty"`
	MinShouldMatch *int    `json:"minimum_should_match,omitempty"`
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) WithMust(queries ...Query) *BoolQuery {
	q.Must = append(q.Must, queries...)
	return q
}

func (q *BoolQuery) WithShould(queries ...Query) *BoolQuery {
	q.Should = append(q.Should, queries...)
	return q
}

func (q *BoolQuery) WithMustNot(queries ...Query) *BoolQuery {
	q.MustNot = append(q.MustNot, queries...)
	return q
}

func (q *BoolQuery) WithFilter(queries ...Query) *BoolQuery {
	q.Filter = append(q.Filter, queries...)
	return q
}

func (q *BoolQuery) WithMinShouldMatch(n int) *BoolQuery {
	q.MinShouldMatch = &n
	return q
}

func (q *BoolQuery) ToSQL() (string, []any, error) {
	var conditions []string
	var args []any

	compile := func(queries []Query, wrap string) ([]string, error) {
		parts := make([]string, 0, len(queries))
		for _, query := range queries {
			sql, queryArgs, err := query.ToSQL()
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf(wrap, sql))
			args = append(args, queryArgs...)
		}
		return parts, nil
	}

	for _, group := range [][]Query{q.Must, q.Filter} {
		parts, err := compile(group, "%s")
		if err != nil {
			return "", nil, err
		}
		if len(parts) > 0 {
			conditions = append(conditions, "("+strings.Join(parts, " and ")+")")
		}
	}

	parts, err := compile(q.Should, "%s")
	if err != nil {
		return "", nil, err
	}
	if len(parts) > 0 {
		if q.MinShouldMatch != nil && *q.MinShouldMatch != 1 {
			// 条件计数：(case when a then 1 else 0 end + ...) >= n
			cases := make([]string, len(parts))
			for i, part := range parts {
				cases[i] = fmt.Sprintf("case when (%s) then 1 else 0 end", part)
			}
			conditions = append(conditions, fmt.Sprintf("(%s) >= %d", strings.Join(cases, " + "), *q.MinShouldMatch))
		} else {
			conditions = append(conditions, "("+strings.Join(parts, " or ")+")")
		}
	}

	parts, err = compile(q.MustNot, "not (%s)")
	if err != nil {
		return "", nil, err
	}
	if len(parts) > 0 {
		conditions = append(conditions, "("+strings.Join(parts, " and ")+")")
	}

	if len(conditions) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(conditions, " and "), args, nil
}
