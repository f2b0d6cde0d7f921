package client

import (
	"context"
	"fmt"
	"time"

	"expohall/internal/cache"
	"expohall/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Upstream 云端 API 客户端（签到上报 + 缓存回源抓取 + 连通性探测）
type Upstream struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewUpstream 创建云端客户端
// 签到上报不做客户端重试：失败记录进持久化队列，由重放器统一推进
func NewUpstream(baseURL string, logger *zap.Logger) *Upstream {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")

	return &Upstream{
		httpClient: httpClient,
		logger:     logger,
	}
}

// DeliverCheckIn 上报一条签到
// 云端以 2xx 确认；非 2xx 或网络错误均视为可重试失败
func (c *Upstream) DeliverCheckIn(ctx context.Context, payload domain.CheckInPayload) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/v1/checkins")
	if err != nil {
		return fmt.Errorf("check-in delivery failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("check-in rejected by upstream: status %d", resp.StatusCode())
	}
	return nil
}

// Fetch 通用回源抓取（缓存层的网络原语）
// 返回 error 仅表示网络层失败；非 2xx 响应原样返回
func (c *Upstream) Fetch(ctx context.Context, req *cache.Request) (*cache.Entry, error) {
	r := c.httpClient.R().SetContext(ctx)
	for k, v := range req.Header {
		r.SetHeader(k, v)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}

	header := map[string]string{}
	for k := range resp.Header() {
		header[k] = resp.Header().Get(k)
	}
	return &cache.Entry{
		Status: resp.StatusCode(),
		Header: header,
		Body:   resp.Body(),
	}, nil
}

// Ping 连通性探测（重放器在网络恢复前避免空转）
func (c *Upstream) Ping(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/api/v1/health")
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("upstream unhealthy: status %d", resp.StatusCode())
	}
	return nil
}
