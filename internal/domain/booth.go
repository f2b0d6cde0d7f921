package domain

// Booth 展位领域模型（平面图上的矩形区域）
// 整个展位列表作为一个快照文档持久化在活动配置下（整组替换写入）
type Booth struct {
	ID   string  `json:"id"`             // 人工分配的展位号，活动内唯一（不区分大小写）
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	ExID string  `json:"exId,omitempty"` // 已分配的参展商 ID（至多一个）
}
