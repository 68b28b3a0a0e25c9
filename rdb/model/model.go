package model

// Model 记录类型需要嵌入的隐式字段
// ID 为自增主键，插入前为 0；CreatedAt 和 UpdatedAt 为毫秒时间戳，由映射层维护
type Model struct {
	ID        int64 `rdb:"id" json:"id"`
	CreatedAt int64 `rdb:"createdAt" json:"createdAt"`
	UpdatedAt int64 `rdb:"updatedAt" json:"updatedAt"`
}

const (
	ColumnID        = "id"
	ColumnCreatedAt = "createdAt"
	ColumnUpdatedAt = "updatedAt"
)
