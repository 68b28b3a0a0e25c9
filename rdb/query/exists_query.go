package query

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExistsQuery 字段非 null
type ExistsQuery struct {
	Field string `json:"field"`
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToSQL() (string, []any, error) {
	if q.Field == "" {
		return "", nil, errors.Wrap(ErrMalformedOptions, "exists query without field")
	}
	return fmt.Sprintf("%s is not null", q.Field), nil, nil
}
