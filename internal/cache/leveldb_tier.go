package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBTiers 共用一个 LevelDB 实例承载全部缓存层
// 键格式 "t:<tier>:<key>"，整层删除按前缀批量进行
type LevelDBTiers struct {
	db *leveldb.DB
}

func OpenLevelDBTiers(path string) (*LevelDBTiers, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return &LevelDBTiers{db: db}, nil
}

func (t *LevelDBTiers) Close() error {
	return t.db.Close()
}

func (t *LevelDBTiers) Tier(name string) TierStore {
	return &levelDBTier{db: t.db, name: name}
}

// Names 枚举当前存在的层名（扫描 "t:" 前缀的键空间）
func (t *LevelDBTiers) Names(_ context.Context) ([]string, error) {
	it := t.db.NewIterator(util.BytesPrefix([]byte("t:")), nil)
	defer it.Release()

	seen := map[string]bool{}
	names := make([]string, 0)
	for it.Next() {
		rest := strings.TrimPrefix(string(it.Key()), "t:")
		idx := strings.Index(rest, ":")
		if idx <= 0 {
			continue
		}
		name := rest[:idx]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan tier names: %w", err)
	}
	return names, nil
}

// Drop 删除整层（前缀批量删除）
func (t *LevelDBTiers) Drop(_ context.Context, name string) error {
	it := t.db.NewIterator(util.BytesPrefix([]byte("t:"+name+":")), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		batch.Delete(k)
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("failed to scan tier %s: %w", name, err)
	}
	if err := t.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to drop tier %s: %w", name, err)
	}
	return nil
}

type levelDBTier struct {
	db   *leveldb.DB
	name string
}

func (t *levelDBTier) Name() string { return t.name }

func (t *levelDBTier) key(key string) []byte {
	return []byte("t:" + t.name + ":" + key)
}

func (t *levelDBTier) Get(_ context.Context, key string) (*Entry, error) {
	raw, err := t.db.Get(t.key(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// 损坏的条目按未命中处理，后续写入会覆盖
		return nil, ErrMiss
	}
	return &e, nil
}

func (t *levelDBTier) Put(_ context.Context, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := t.db.Put(t.key(key), raw, nil); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
