package domain

import "time"

// 签到方向
const (
	CheckInTypeIn  = "in"
	CheckInTypeOut = "out"
)

// PendingCheckIn 离线期间捕获、尚未被云端确认的签到记录
// 创建后不可变；只有云端返回 2xx 确认后才会从本地队列删除
type PendingCheckIn struct {
	ID         string    `json:"id"`                   // 本地生成的唯一标识（队列键）
	UID        string    `json:"uid"`                  // 被签到人的用户 ID
	BadgeID    string    `json:"badge_id"`             // 胸卡号
	Type       string    `json:"type"`                 // "in" | "out"
	EventID    string    `json:"event_id,omitempty"`
	ScannedBy  string    `json:"scanned_by,omitempty"` // 扫码操作员
	Location   string    `json:"location,omitempty"`   // 可选的签到点位置
	CapturedAt time.Time `json:"captured_at"`
}

// CheckInPayload 签到上报线格式（与云端 API 对齐）
// eventId / scannedBy 为空时序列化为 null
type CheckInPayload struct {
	UID       string  `json:"uid"`
	Type      string  `json:"type"`
	EventID   *string `json:"eventId"`
	ScannedBy *string `json:"scannedBy"`
}

// Payload 生成云端上报载荷
func (p *PendingCheckIn) Payload() CheckInPayload {
	out := CheckInPayload{
		UID:  p.UID,
		Type: p.Type,
	}
	if p.EventID != "" {
		eventID := p.EventID
		out.EventID = &eventID
	}
	if p.ScannedBy != "" {
		scannedBy := p.ScannedBy
		out.ScannedBy = &scannedBy
	}
	return out
}
