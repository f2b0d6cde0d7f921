package httpapi

import (
	"net/http"

	"expohall/internal/cache"

	"go.uber.org/zap"
)

// ProxyHandler 缓存策略代理：把进站请求交给 Resolver 按策略表解析
// 失败路径永远是合法的 HTTP 响应（最坏 503/502），不向网络栈抛未处理异常
type ProxyHandler struct {
	resolver *cache.Resolver
	logger   *zap.Logger
}

func NewProxyHandler(resolver *cache.Resolver, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{resolver: resolver, logger: logger}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &cache.Request{
		Method: r.Method,
		Path:   r.URL.RequestURI(),
		Header: map[string]string{},
	}
	for _, k := range []string{"Accept", "Accept-Language", "Authorization", "Content-Type"} {
		if v := r.Header.Get(k); v != "" {
			req.Header[k] = v
		}
	}

	entry, err := h.resolver.Handle(r.Context(), req)
	if err != nil {
		// NetworkFirst 在无缓存可回退时上抛的网络错误
		h.logger.Warn("Proxy request failed", zap.String("path", req.Path), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "upstream unreachable")
		return
	}

	for k, v := range entry.Header {
		w.Header().Set(k, v)
	}
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}
