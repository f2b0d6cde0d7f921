package domain

import "time"

// Exhibitor 参展商领域模型
// BoothID 是指向展位号的弱引用（仅用于查询），展位↔参展商的一致性
// 由 FloorplanService.AssignExhibitorToBooth 的写入序列保证
type Exhibitor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BoothID   string    `json:"booth_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
