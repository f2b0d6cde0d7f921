package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"expohall/internal/domain"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBQueue 队列的 LevelDB 实现
// 键空间：
//   - "q:<捕获时间纳秒%020d>:<id>" -> 记录 JSON（迭代顺序即插入顺序）
//   - "i:<id>" -> 队列键（按 ID 删除用的二级索引）
type LevelDBQueue struct {
	db *leveldb.DB
}

func OpenLevelDBQueue(path string) (*LevelDBQueue, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open check-in queue store: %w", err)
	}
	return &LevelDBQueue{db: db}, nil
}

func (q *LevelDBQueue) Close() error {
	return q.db.Close()
}

func (q *LevelDBQueue) Put(_ context.Context, rec *domain.PendingCheckIn) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode check-in record: %w", err)
	}
	key := fmt.Sprintf("q:%020d:%s", rec.CapturedAt.UnixNano(), rec.ID)

	batch := new(leveldb.Batch)
	batch.Put([]byte(key), raw)
	batch.Put([]byte("i:"+rec.ID), []byte(key))
	if err := q.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to persist check-in record: %w", err)
	}
	return nil
}

func (q *LevelDBQueue) GetAll(_ context.Context) ([]*domain.PendingCheckIn, error) {
	it := q.db.NewIterator(util.BytesPrefix([]byte("q:")), nil)
	defer it.Release()

	out := make([]*domain.PendingCheckIn, 0)
	for it.Next() {
		var rec domain.PendingCheckIn
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			// 损坏记录跳过，保留在磁盘上供人工排查
			continue
		}
		out = append(out, &rec)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to read check-in queue: %w", err)
	}
	return out, nil
}

func (q *LevelDBQueue) Delete(_ context.Context, id string) error {
	key, err := q.db.Get([]byte("i:"+id), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to look up check-in record: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Delete(key)
	batch.Delete([]byte("i:" + id))
	if err := q.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to delete check-in record: %w", err)
	}
	return nil
}

func (q *LevelDBQueue) Len(_ context.Context) (int, error) {
	it := q.db.NewIterator(util.BytesPrefix([]byte("q:")), nil)
	defer it.Release()

	n := 0
	for it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("failed to count check-in queue: %w", err)
	}
	return n, nil
}
