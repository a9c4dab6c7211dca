// Package http 基于 gin 的状态查询与操作 API
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ztomic/v1/internal/api/http/handlers"
	"github.com/ztomic/v1/internal/api/http/middleware"
	apiconfig "github.com/ztomic/v1/internal/config/api"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// Server HTTP 服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	opts       *apiconfig.APIOptions
	logger     log.Logger

	mu   sync.Mutex
	addr net.Addr
	done chan struct{}
}

// ServerDeps 服务器依赖
type ServerDeps struct {
	Options  *apiconfig.APIOptions
	Logger   log.Logger
	Swaps    handlers.SwapService
	Ledger   swapintf.Ledger
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer
}

// NewServer 创建服务器并注册路由，不监听端口
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Swaps == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("api: swap service and ledger are required")
	}
	if deps.Options == nil {
		deps.Options = apiconfig.New(nil).GetOptions()
	}
	deps.Logger = logimpl.NewModuleLogger(deps.Logger, "api")
	if deps.Registry == nil {
		deps.Registry = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(deps.Logger),
		middleware.NewMetrics(deps.Registry).Middleware(),
	)

	s := &Server{
		router: router,
		opts:   deps.Options,
		logger: deps.Logger,
	}
	s.setupRoutes(deps)
	return s, nil
}

func (s *Server) setupRoutes(deps ServerDeps) {
	health := handlers.NewHealthHandler(deps.Swaps, deps.Ledger)
	s.router.GET("/healthz", health.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	handlers.NewSwapHandlers(deps.Swaps).RegisterRoutes(v1)
	handlers.NewTreeHandlers(deps.Ledger).RegisterRoutes(v1)
}

// Handler 路由，测试中直接用 httptest 调用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 监听配置地址并在后台服务
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.opts.ListenAddr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.done = make(chan struct{})
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	srv, done := s.httpServer, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器异常退出: %v", err)
		}
	}()
	s.logger.Infof("HTTP服务器已启动: http://%s/api/v1/swaps", ln.Addr())
	return nil
}

// Addr 实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop 优雅关闭，等待在途请求至多 ShutdownTimeout
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.httpServer, s.done
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	err := srv.Shutdown(ctx)
	<-done
	s.logger.Info("HTTP服务器已停止")
	return err
}
