package query

// QueryType 查询节点类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeTerms    QueryType = "terms"
	QueryTypeRange    QueryType = "range"
	QueryTypeExists   QueryType = "exists"
	QueryTypeWildcard QueryType = "wildcard"
	QueryTypePrefix   QueryType = "prefix"
)

// Query 查询节点接口，节点编译为带 ? 占位符的条件表达式，通过 Options.Filter 使用
type Query interface {
	Type() QueryType
	ToSQL() (string, []any, error)
}

func Term(field string, value any) *TermQuery {
	return &TermQuery{Field: field, Value: value}
}

func Terms(field string, values ...any) *TermsQuery {
	return &TermsQuery{Field: field, Values: values}
}

func Range(field string) *RangeQuery {
	return &RangeQuery{Field: field}
}

func Exists(field string) *ExistsQuery {
	return &ExistsQuery{Field: field}
}

func Prefix(field, value string) *PrefixQuery {
	return &PrefixQuery{Field: field, Value: value}
}

func Wildcard(field, value string) *WildcardQuery {
	return &WildcardQuery{Field: field, Value: value}
}

func Bool() *BoolQuery {
	return &BoolQuery{}
}
