// Package server WebSocket 接入层：认证、限流、连接管理与优雅关闭
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/config"
	"github.com/palemoky/spade-three/internal/game/room"
	"github.com/palemoky/spade-three/internal/record"
	"github.com/palemoky/spade-three/internal/server/handler"
	"github.com/palemoky/spade-three/internal/server/session"
)

// Deps 服务器依赖
type Deps struct {
	Config   *config.Config
	Logger   *log.Logger
	Clock    quartz.Clock
	Registry *room.Registry
	Auth     auth.Authenticator

	// 以下可为空，对应的 HTTP 接口返回 404
	Leaderboard *record.RedisSink
	History     *record.SQLSink
}

// Server WebSocket 服务器
type Server struct {
	cfg      *config.Config
	log      *log.Logger
	clock    quartz.Clock
	registry *room.Registry
	auth     auth.Authenticator
	presence *session.Manager
	handler  *handler.Handler
	upgrader websocket.Upgrader

	leaderboard *record.RedisSink
	history     *record.SQLSink

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	chatLimiter    *ChatRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{}

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex
}

// New 创建服务器实例
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("server: authenticator is required")
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	cfg := deps.Config
	s := &Server{
		cfg:         cfg,
		log:         deps.Logger.WithPrefix("server"),
		clock:       deps.Clock,
		registry:    deps.Registry,
		auth:        deps.Auth,
		presence:    session.NewManager(deps.Clock),
		leaderboard: deps.Leaderboard,
		history:     deps.History,
		clients:     make(map[string]*Client),
		rateLimiter: NewRateLimiter(deps.Clock,
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(deps.Clock, cfg.Security.MessageLimit.MaxPerSecond),
		chatLimiter: NewChatRateLimiter(deps.Clock,
			cfg.Security.ChatLimit.MaxPerSecond,
			cfg.Security.ChatLimit.MaxPerMinute,
			cfg.Security.ChatLimit.CooldownDuration(),
		),
		ipFilter:       NewIPFilter(),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	// 来源校验在升级前已经做过
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	s.handler = handler.New(handler.Deps{
		Registry:      deps.Registry,
		Auth:          deps.Auth,
		ChatLimiter:   s.chatLimiter,
		Presence:      s.presence,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
		MaxChatLength: cfg.Security.ChatLimit.MaxLength,
	})

	s.log.Info("🔒 安全配置",
		"conn_per_sec", cfg.Security.RateLimit.MaxPerSecond,
		"msg_per_sec", cfg.Security.MessageLimit.MaxPerSecond,
		"chat_per_sec", cfg.Security.ChatLimit.MaxPerSecond,
		"max_conns", cfg.Server.MaxConnections)

	return s, nil
}

// Handler HTTP 路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/history", s.handleHistory)
	return mux
}

// Run 启动服务器，ctx 取消后关闭监听并断开所有连接
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.monitorStats(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("🚀 服务器启动", "addr", fmt.Sprintf("ws://%s/ws", addr), "cpus", runtime.NumCPU())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Shutdown()
	s.log.Info("服务器已关闭")
	return err
}

// pongWait 超过该时长未收到任何数据视为断线
func (s *Server) pongWait() time.Duration {
	return s.cfg.Server.HeartbeatTimeoutDuration()
}

// pingPeriod 必须小于 pongWait
func (s *Server) pingPeriod() time.Duration {
	return s.pongWait() * 9 / 10
}
