package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于代理 catch-all 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterEdgeRoutes 注册边缘网关路由
// 签到/队列管理走显式路由，其余请求全部进缓存代理
func (r *Router) RegisterEdgeRoutes(c *CheckInHandler, proxy *ProxyHandler) {
	r.Handle("/edge/api/v1/checkin", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.Submit(w, req)
	})

	r.Handle("/edge/api/v1/checkins/pending", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			c.Pending(w, req)
		case http.MethodDelete:
			c.Purge(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/edge/api/v1/sync", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.Sync(w, req)
	})

	// catch-all：缓存策略代理
	r.HandleHandler("/", proxy)
}

// RegisterFloorplanRoutes 注册平面图路由（expohall-data）
func (r *Router) RegisterFloorplanRoutes(f *FloorplanHandler) {
	r.Handle("/admin/api/v1/floorplan/", f.Dispatch)
}
