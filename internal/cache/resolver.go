package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Request 主机无关的请求描述（路径含查询串）
type Request struct {
	Method string
	Path   string
	Header map[string]string
}

// IsNavigation 页面导航请求（浏览器地址栏/链接跳转）
func (r *Request) IsNavigation() bool {
	return r.Method == "GET" && strings.Contains(r.Header["Accept"], "text/html")
}

// Fetcher 网络抓取原语
// 返回 error 表示网络层失败（连接不通等）；非 2xx 响应正常返回 Entry
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Entry, error)
}

func (e *Entry) ok() bool {
	return e.Status >= 200 && e.Status < 300
}

// Resolver 请求分发器：按策略表把请求解析到缓存或网络
// 所有依赖注入（策略表、缓存代、抓取函数、时钟），便于单测多实例不同策略
type Resolver struct {
	policy Policy
	gen    *Generation
	fetch  Fetcher
	logger *zap.Logger
	now    func() time.Time
}

func NewResolver(policy Policy, gen *Generation, fetch Fetcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		policy: policy,
		gen:    gen,
		fetch:  fetch,
		logger: logger,
		now:    time.Now,
	}
}

// Handle 处理一个被拦截的请求
// 只有 NetworkFirst 在"无网络且无缓存且非导航"时返回 error；
// 其余失败路径一律转换为合法的 HTTP 形态响应（最坏 503）
func (r *Resolver) Handle(ctx context.Context, req *Request) (*Entry, error) {
	// 缓存只对 GET 有意义，其余方法直通网络
	if req.Method != "GET" {
		return r.fetch.Fetch(ctx, req)
	}

	switch r.policy.Classify(req.Path) {
	case CacheFirst:
		return r.serveCacheFirst(ctx, req), nil
	case StaleWhileRevalidate:
		return r.serveStaleWhileRevalidate(ctx, req)
	default:
		return r.serveNetworkFirst(ctx, req)
	}
}

// serveCacheFirst 命中即返回（零网络调用）；未命中回源，成功写入 static 层；
// 网络失败合成 503，不向上抛错
func (r *Resolver) serveCacheFirst(ctx context.Context, req *Request) *Entry {
	if e := r.lookup(ctx, req.Path, r.gen.Precache, r.gen.Static); e != nil {
		return e
	}

	entry, err := r.fetch.Fetch(ctx, req)
	if err != nil {
		r.logger.Debug("Cache-first fetch failed", zap.String("path", req.Path), zap.Error(err))
		return r.offlineEntry("resource unavailable offline and not cached")
	}
	if entry.ok() {
		r.storeBestEffort(ctx, r.gen.Static, req.Path, entry)
	}
	return entry
}

// serveNetworkFirst 网络优先；成功写入 dynamic 层并返回实时响应；
// 失败回退缓存；导航请求兜底到预缓存首页或离线页；否则错误上抛
func (r *Resolver) serveNetworkFirst(ctx context.Context, req *Request) (*Entry, error) {
	entry, err := r.fetch.Fetch(ctx, req)
	if err == nil && entry.Status < 500 {
		if entry.ok() {
			r.storeBestEffort(ctx, r.gen.Dynamic, req.Path, entry)
		}
		return entry, nil
	}

	// 网络层失败或上游 5xx：回退缓存副本
	if e := r.lookup(ctx, req.Path, r.gen.Dynamic, r.gen.Static, r.gen.Precache); e != nil {
		return e, nil
	}
	if err == nil {
		// 上游 5xx 且无缓存可回退：原样返回实时响应
		return entry, nil
	}

	if req.IsNavigation() {
		if root, rerr := r.gen.Precache.Get(ctx, "/"); rerr == nil {
			return root, nil
		}
		return r.offlineEntry("you are offline and this page is not cached"), nil
	}
	return nil, err
}

// serveStaleWhileRevalidate 有缓存立即返回（可接受过期副本），后台刷新 dynamic 层；
// 无缓存等待网络结果
func (r *Resolver) serveStaleWhileRevalidate(ctx context.Context, req *Request) (*Entry, error) {
	cached := r.lookup(ctx, req.Path, r.gen.Dynamic, r.gen.Precache)
	if cached != nil {
		go r.revalidate(req)
		return cached, nil
	}

	entry, err := r.fetch.Fetch(ctx, req)
	if err != nil {
		return r.offlineEntry("resource unavailable offline and not cached"), nil
	}
	if entry.ok() {
		r.storeBestEffort(ctx, r.gen.Dynamic, req.Path, entry)
	}
	return entry, nil
}

// revalidate 后台刷新（fire-and-forget），结果供下一次请求使用
func (r *Resolver) revalidate(req *Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := r.fetch.Fetch(ctx, req)
	if err != nil {
		r.logger.Debug("Background revalidate failed", zap.String("path", req.Path), zap.Error(err))
		return
	}
	if entry.ok() {
		r.storeBestEffort(ctx, r.gen.Dynamic, req.Path, entry)
	}
}

// lookup 依次查多个层，返回首个命中
func (r *Resolver) lookup(ctx context.Context, key string, tiers ...TierStore) *Entry {
	for _, tier := range tiers {
		e, err := tier.Get(ctx, key)
		if err == nil {
			return e
		}
		if err != ErrMiss {
			r.logger.Warn("Cache tier read failed", zap.String("tier", tier.Name()), zap.Error(err))
		}
	}
	return nil
}

// storeBestEffort 缓存写入尽力而为：失败只记日志，不影响响应
func (r *Resolver) storeBestEffort(ctx context.Context, tier TierStore, key string, e *Entry) {
	clone := *e
	clone.StoredAt = r.now().Unix()
	if err := tier.Put(ctx, key, &clone); err != nil {
		r.logger.Warn("Cache tier write failed",
			zap.String("tier", tier.Name()), zap.String("key", key), zap.Error(err))
	}
}

func (r *Resolver) offlineEntry(msg string) *Entry {
	return &Entry{
		Status: 503,
		Header: map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:   []byte(msg),
	}
}
