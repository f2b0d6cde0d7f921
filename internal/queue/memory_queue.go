package queue

import (
	"context"
	"errors"
	"sort"
	"sync"

	"expohall/internal/domain"
)

// MemoryQueue 用于单元测试的内存队列实现
type MemoryQueue struct {
	mu   sync.Mutex
	recs map[string]*domain.PendingCheckIn

	// FailWrites 模拟本地持久化不可用（写入必须报硬错误）
	FailWrites bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{recs: map[string]*domain.PendingCheckIn{}}
}

func (q *MemoryQueue) Put(_ context.Context, rec *domain.PendingCheckIn) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.FailWrites {
		return errors.New("queue store unavailable")
	}
	copied := *rec
	q.recs[rec.ID] = &copied
	return nil
}

func (q *MemoryQueue) GetAll(_ context.Context) ([]*domain.PendingCheckIn, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.PendingCheckIn, 0, len(q.recs))
	for _, rec := range q.recs {
		copied := *rec
		out = append(out, &copied)
	}
	// 与 LevelDB 实现一致：最旧在前
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *MemoryQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.recs, id)
	return nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.recs), nil
}

func (q *MemoryQueue) Close() error { return nil }
