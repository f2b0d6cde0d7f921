package service

import (
	"context"
	"fmt"
	"time"

	"expohall/internal/domain"
	"expohall/internal/queue"
	"expohall/internal/replay"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status 签到提交结果
type Status string

const (
	StatusDelivered Status = "delivered" // 云端已实时确认
	StatusQueued    Status = "queued"    // 已持久化待重放（未投递）
	StatusFailed    Status = "failed"    // 本地持久化也失败，动作未被记录
)

// CheckInService 签到提交服务
// 投递失败时落盘排队；本地队列写入比缓存写入重要得多：
// 队列不可用必须向调用方报硬错误，不能静默丢失签到
type CheckInService struct {
	queue   queue.Store
	deliver replay.Deliverer
	trigger func() // 入队后登记一次重放触发
	logger  *zap.Logger
	now     func() time.Time
}

func NewCheckInService(q queue.Store, deliver replay.Deliverer, trigger func(), logger *zap.Logger) *CheckInService {
	if trigger == nil {
		trigger = func() {}
	}
	return &CheckInService{
		queue:   q,
		deliver: deliver,
		trigger: trigger,
		logger:  logger,
		now:     time.Now,
	}
}

// SubmitCheckInRequest 签到提交请求
type SubmitCheckInRequest struct {
	UID       string `json:"uid"`
	BadgeID   string `json:"badge_id"`
	Type      string `json:"type"` // "in" | "out"，默认 "in"
	EventID   string `json:"event_id"`
	ScannedBy string `json:"scanned_by"`
	Location  string `json:"location"`
}

// Submit 提交一条签到
// 先尝试实时投递；失败则写入持久化队列并登记重放触发
func (s *CheckInService) Submit(ctx context.Context, req SubmitCheckInRequest) (Status, *domain.PendingCheckIn, error) {
	if req.UID == "" {
		return StatusFailed, nil, fmt.Errorf("uid is required")
	}
	if req.Type == "" {
		req.Type = domain.CheckInTypeIn
	}
	if req.Type != domain.CheckInTypeIn && req.Type != domain.CheckInTypeOut {
		return StatusFailed, nil, fmt.Errorf("invalid check-in type: %s", req.Type)
	}

	rec := &domain.PendingCheckIn{
		ID:         uuid.NewString(),
		UID:        req.UID,
		BadgeID:    req.BadgeID,
		Type:       req.Type,
		EventID:    req.EventID,
		ScannedBy:  req.ScannedBy,
		Location:   req.Location,
		CapturedAt: s.now(),
	}

	err := s.deliver.DeliverCheckIn(ctx, rec.Payload())
	if err == nil {
		return StatusDelivered, rec, nil
	}
	s.logger.Warn("Live check-in delivery failed, queueing",
		zap.String("uid", rec.UID), zap.Error(err))

	if err := s.queue.Put(ctx, rec); err != nil {
		// 本地存储不可用：签到完全没有被记录，必须让 UI 告知用户
		s.logger.Error("Check-in could not be queued", zap.String("uid", rec.UID), zap.Error(err))
		return StatusFailed, nil, fmt.Errorf("check-in not recorded: %w", err)
	}
	s.trigger()
	return StatusQueued, rec, nil
}

// Pending 查询待重放队列（管理/诊断用）
func (s *CheckInService) Pending(ctx context.Context) ([]*domain.PendingCheckIn, error) {
	recs, err := s.queue.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending check-ins: %w", err)
	}
	return recs, nil
}

// Purge 管理性清空队列，返回清除条数
func (s *CheckInService) Purge(ctx context.Context) (int, error) {
	recs, err := s.queue.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read pending check-ins: %w", err)
	}
	purged := 0
	for _, rec := range recs {
		if err := s.queue.Delete(ctx, rec.ID); err != nil {
			return purged, fmt.Errorf("failed to purge check-in %s: %w", rec.ID, err)
		}
		purged++
	}
	s.logger.Info("Purged pending check-ins", zap.Int("count", purged))
	return purged, nil
}
