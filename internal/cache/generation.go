package cache

import (
	"context"

	"go.uber.org/zap"
)

// 层名前缀（完整层名形如 "expohall-static-v2"）
const (
	tierPrefixStatic   = "expohall-static-"
	tierPrefixDynamic  = "expohall-dynamic-"
	tierPrefixPrecache = "expohall-precache-"
)

// Generation 一代缓存：三个带版本号的命名层
// 新版本激活时删除所有不属于本代的层（旧代垃圾回收）
type Generation struct {
	Version  string
	Static   TierStore
	Dynamic  TierStore
	Precache TierStore

	backend TierBackend
	logger  *zap.Logger
}

func NewGeneration(backend TierBackend, version string, logger *zap.Logger) *Generation {
	return &Generation{
		Version:  version,
		Static:   backend.Tier(tierPrefixStatic + version),
		Dynamic:  backend.Tier(tierPrefixDynamic + version),
		Precache: backend.Tier(tierPrefixPrecache + version),
		backend:  backend,
		logger:   logger,
	}
}

// Activate 枚举后端中已存在的层，删除名称不在本代期望集合内的层，
// 使新的策略表立即生效（对应 service worker 的 activate + clients.claim）
func (g *Generation) Activate(ctx context.Context) error {
	expected := map[string]bool{
		g.Static.Name():   true,
		g.Dynamic.Name():  true,
		g.Precache.Name(): true,
	}
	names, err := g.backend.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if expected[name] {
			continue
		}
		if err := g.backend.Drop(ctx, name); err != nil {
			g.logger.Warn("Failed to drop stale cache tier", zap.String("tier", name), zap.Error(err))
			continue
		}
		g.logger.Info("Dropped stale cache tier", zap.String("tier", name))
	}
	return nil
}

// Warm 预缓存：启动时抓取固定路径集合写入 precache 层（尽力而为）
func (g *Generation) Warm(ctx context.Context, fetch Fetcher, paths []string) {
	for _, path := range paths {
		entry, err := fetch.Fetch(ctx, &Request{Method: "GET", Path: path})
		if err != nil {
			g.logger.Warn("Precache fetch failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if !entry.ok() {
			g.logger.Warn("Precache skipped non-success response",
				zap.String("path", path), zap.Int("status", entry.Status))
			continue
		}
		if err := g.Precache.Put(ctx, path, entry); err != nil {
			g.logger.Warn("Precache write failed", zap.String("path", path), zap.Error(err))
		}
	}
}
