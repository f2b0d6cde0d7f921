package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"expohall/internal/docstore"
	"expohall/internal/domain"

	"go.uber.org/zap"
)

// FloorplanService 平面图展位服务
// 保证展位↔参展商双向一对一：展位的 exId 与参展商文档的 booth_id
// 分属两个实体，由 AssignExhibitorToBooth 的幂等写入序列保持一致
//
// 编辑会话按"单编辑者"假设持有内存中的有序展位列表（编辑器语义），
// 持久化走整组快照替换；两个编辑者并发编辑是后写覆盖（见 DESIGN.md）
type FloorplanService struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string][]domain.Booth // eventID -> 有序展位列表
}

func NewFloorplanService(store docstore.Store, logger *zap.Logger) *FloorplanService {
	return &FloorplanService{
		store:    store,
		logger:   logger,
		now:      time.Now,
		sessions: map[string][]domain.Booth{},
	}
}

func exhibitorsCollection(eventID string) string {
	return docstore.CollectionPath("events", eventID, "exhibitors")
}

func configCollection(eventID string) string {
	return docstore.CollectionPath("events", eventID, "config")
}

// LoadDesign 从文档库装载展位快照并初始化编辑会话
// 文档不存在视为空白平面图
func (s *FloorplanService) LoadDesign(ctx context.Context, eventID string) ([]domain.Booth, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	doc, err := s.store.Get(ctx, configCollection(eventID), "floorplan")
	if err != nil {
		if err == docstore.ErrNotFound {
			s.setSession(eventID, nil)
			return []domain.Booth{}, nil
		}
		return nil, fmt.Errorf("failed to load floorplan: %w", err)
	}

	booths, err := decodeBooths(doc.Fields["booths"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode floorplan: %w", err)
	}
	s.setSession(eventID, booths)
	return booths, nil
}

// SaveDesign 校验后整组快照写入（单次原子文档写，不做逐展位更新）
func (s *FloorplanService) SaveDesign(ctx context.Context, eventID string, booths []domain.Booth) error {
	if eventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if id, dup := findDuplicateID(booths); dup {
		return fmt.Errorf("duplicate booth id: %s", id)
	}

	if err := s.store.Set(ctx, configCollection(eventID), "floorplan", map[string]any{
		"booths":     booths,
		"updated_at": s.now().UTC().Format(time.RFC3339),
	}, true); err != nil {
		return fmt.Errorf("failed to save floorplan: %w", err)
	}
	s.setSession(eventID, booths)
	return nil
}

// AssignResult 分配结果（cleared 为被清除的冲突占用数，用于 UI 提示）
type AssignResult struct {
	Cleared int `json:"cleared"`
}

// AssignExhibitorToBooth 把参展商分配到展位
// 步骤（每步独立幂等，失败后重试收敛到同一正确状态）：
//  1. 查出其他占用该展位号的参展商，逐个清除其 booth_id（"一展位一商"方向）
//  2. 目标参展商 booth_id 置为该展位号并盖更新时间戳
//  3. 修正内存展位列表：目标展位 exId 置为该参展商，
//     其余 exId 相同的展位清空（"一商一展位"方向）
func (s *FloorplanService) AssignExhibitorToBooth(ctx context.Context, eventID, boothID, exhibitorID string) (*AssignResult, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}
	if boothID == "" {
		return nil, fmt.Errorf("booth_id is required")
	}
	if exhibitorID == "" {
		return nil, fmt.Errorf("exhibitor_id is required")
	}

	booths, err := s.sessionBooths(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !boothExists(booths, boothID) {
		return nil, fmt.Errorf("booth not found: %s", boothID)
	}

	exhibitors := exhibitorsCollection(eventID)
	if _, err := s.store.Get(ctx, exhibitors, exhibitorID); err != nil {
		if err == docstore.ErrNotFound {
			return nil, fmt.Errorf("exhibitor not found: %s", exhibitorID)
		}
		return nil, fmt.Errorf("failed to load exhibitor: %w", err)
	}

	// 1. 清除其他参展商对该展位的占用
	holders, err := s.store.Query(ctx, exhibitors, docstore.Filter{Field: "booth_id", Value: boothID})
	if err != nil {
		return nil, fmt.Errorf("failed to query booth holders: %w", err)
	}
	cleared := 0
	for _, holder := range holders {
		if holder.ID == exhibitorID {
			continue
		}
		if err := s.store.Set(ctx, exhibitors, holder.ID, map[string]any{"booth_id": ""}, true); err != nil {
			return nil, fmt.Errorf("failed to clear conflicting assignment: %w", err)
		}
		cleared++
	}

	// 2. 写入目标参展商的 booth_id
	if err := s.store.Set(ctx, exhibitors, exhibitorID, map[string]any{
		"booth_id":   boothID,
		"updated_at": s.now().UTC().Format(time.RFC3339),
	}, true); err != nil {
		return nil, fmt.Errorf("failed to assign booth: %w", err)
	}

	// 3. 修正内存展位列表（双向一对一）
	s.mu.Lock()
	session := s.sessions[eventID]
	for i := range session {
		if session[i].ID == boothID {
			session[i].ExID = exhibitorID
		} else if session[i].ExID == exhibitorID {
			session[i].ExID = ""
		}
	}
	s.mu.Unlock()

	if cleared > 0 {
		s.logger.Info("Cleared conflicting booth assignments",
			zap.String("event_id", eventID), zap.String("booth_id", boothID), zap.Int("cleared", cleared))
	}
	return &AssignResult{Cleared: cleared}, nil
}

// RenameBooth 重命名展位号
// 与现有展位号冲突（不区分大小写）时在任何写入前拒绝
func (s *FloorplanService) RenameBooth(ctx context.Context, eventID, oldID, newID string) error {
	if eventID == "" {
		return fmt.Errorf("event_id is required")
	}
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return fmt.Errorf("new booth id is required")
	}

	booths, err := s.sessionBooths(ctx, eventID)
	if err != nil {
		return err
	}

	target := -1
	for i := range booths {
		if booths[i].ID == oldID {
			target = i
			continue
		}
		if strings.EqualFold(booths[i].ID, newID) {
			return fmt.Errorf("booth id already in use: %s", booths[i].ID)
		}
	}
	if target < 0 {
		return fmt.Errorf("booth not found: %s", oldID)
	}

	// 展位已被占用时，参展商的 booth_id 反向引用必须同步改名
	if exID := booths[target].ExID; exID != "" {
		if err := s.store.Set(ctx, exhibitorsCollection(eventID), exID, map[string]any{
			"booth_id":   newID,
			"updated_at": s.now().UTC().Format(time.RFC3339),
		}, true); err != nil {
			return fmt.Errorf("failed to update exhibitor booth reference: %w", err)
		}
	}

	s.mu.Lock()
	s.sessions[eventID][target].ID = newID
	s.mu.Unlock()
	return nil
}

// Design 返回当前编辑会话的展位列表
func (s *FloorplanService) Design(ctx context.Context, eventID string) ([]domain.Booth, error) {
	return s.sessionBooths(ctx, eventID)
}

// PublishFloorplan 发布平面图：校验不变量后渲染静态 SVG 快照并入库
func (s *FloorplanService) PublishFloorplan(ctx context.Context, eventID string) (string, error) {
	booths, err := s.sessionBooths(ctx, eventID)
	if err != nil {
		return "", err
	}
	if id, dup := findDuplicateID(booths); dup {
		return "", fmt.Errorf("cannot publish: duplicate booth id: %s", id)
	}
	if exID, dup := findDuplicateExhibitor(booths); dup {
		return "", fmt.Errorf("cannot publish: exhibitor assigned to multiple booths: %s", exID)
	}

	svg := renderSVG(booths)
	if err := s.store.Set(ctx, configCollection(eventID), "floorplan_published", map[string]any{
		"svg":          svg,
		"published_at": s.now().UTC().Format(time.RFC3339),
	}, false); err != nil {
		return "", fmt.Errorf("failed to store published floorplan: %w", err)
	}
	s.logger.Info("Floorplan published", zap.String("event_id", eventID), zap.Int("booths", len(booths)))
	return svg, nil
}

// ---- helpers ----

func (s *FloorplanService) setSession(eventID string, booths []domain.Booth) {
	copied := make([]domain.Booth, len(booths))
	copy(copied, booths)
	s.mu.Lock()
	s.sessions[eventID] = copied
	s.mu.Unlock()
}

// sessionBooths 返回会话快照，未装载时先从文档库装载
func (s *FloorplanService) sessionBooths(ctx context.Context, eventID string) ([]domain.Booth, error) {
	s.mu.Lock()
	session, ok := s.sessions[eventID]
	if ok {
		copied := make([]domain.Booth, len(session))
		copy(copied, session)
		s.mu.Unlock()
		return copied, nil
	}
	s.mu.Unlock()
	return s.LoadDesign(ctx, eventID)
}

func boothExists(booths []domain.Booth, id string) bool {
	for i := range booths {
		if booths[i].ID == id {
			return true
		}
	}
	return false
}

// findDuplicateID 展位号唯一性检查（不区分大小写），仅在校验点构建 id 映射
func findDuplicateID(booths []domain.Booth) (string, bool) {
	seen := map[string]bool{}
	for i := range booths {
		key := strings.ToLower(booths[i].ID)
		if seen[key] {
			return booths[i].ID, true
		}
		seen[key] = true
	}
	return "", false
}

func findDuplicateExhibitor(booths []domain.Booth) (string, bool) {
	seen := map[string]bool{}
	for i := range booths {
		if booths[i].ExID == "" {
			continue
		}
		if seen[booths[i].ExID] {
			return booths[i].ExID, true
		}
		seen[booths[i].ExID] = true
	}
	return "", false
}

// decodeBooths 文档字段 -> 展位列表（经 JSON 往返做类型归一）
func decodeBooths(v any) ([]domain.Booth, error) {
	if v == nil {
		return []domain.Booth{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var booths []domain.Booth
	if err := json.Unmarshal(raw, &booths); err != nil {
		return nil, err
	}
	return booths, nil
}

// renderSVG 渲染展位矩形 + 展位号标签的静态矢量图
func renderSVG(booths []domain.Booth) string {
	var maxX, maxY float64
	for i := range booths {
		if x := booths[i].X + booths[i].W; x > maxX {
			maxX = x
		}
		if y := booths[i].Y + booths[i].H; y > maxY {
			maxY = y
		}
	}
	if maxX < 100 {
		maxX = 100
	}
	if maxY < 100 {
		maxY = 100
	}

	// 输出顺序固定，发布结果可重现
	sorted := make([]domain.Booth, len(booths))
	copy(sorted, booths)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f">`, maxX, maxY)
	for i := range sorted {
		fill := "#e8e8e8"
		if sorted[i].ExID != "" {
			fill = "#bcd9f5"
		}
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="#333"/>`,
			sorted[i].X, sorted[i].Y, sorted[i].W, sorted[i].H, fill)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle">%s</text>`,
			sorted[i].X+sorted[i].W/2, sorted[i].Y+sorted[i].H/2, svgEscape(sorted[i].ID))
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func svgEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
