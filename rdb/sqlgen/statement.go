package sqlgen

import (
	"github.com/hatlonely/liteorm/rdb/query"
)

// Statement 一条完整的 SQL 语句，参数通过 ? 占位符绑定
type Statement struct {
	SQL  string
	Args []any
}

// Inline 参数以字面量代入后的语句文本，文本中的单引号转义为两个单引号，仅用于日志和预览
func (s Statement) Inline() string {
	return query.Inline(s.SQL, s.Args)
}

func (s Statement) String() string {
	return s.Inline()
}
