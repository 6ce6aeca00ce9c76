package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
)

const monitorInterval = 30 * time.Second

// monitorStats 定期输出服务器状态并清理过期的限流与离线记录
func (s *Server) monitorStats(ctx context.Context) {
	ticker := s.clock.NewTicker(monitorInterval, "server", "monitor")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup()
			expired := s.presence.Cleanup()

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.log.Info("📊 监控",
				"online", s.presence.OnlineCount(),
				"conns", len(s.semaphore),
				"max_conns", s.maxConnections,
				"rooms", s.registry.Len(),
				"active_games", s.registry.ActiveCount(),
				"expired_sessions", expired,
				"goroutines", runtime.NumGoroutine(),
				"mem_mb", fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024))
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接，通知所有连接，进行中的对局继续
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		"👷🏻‍♂️ 维护模式：停止接受新连接"))

	s.log.Info("🔧 进入维护模式")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式并等待进行中的对局结束，ctx 到期后不再等待。
// 返回时仍未结束的对局数。
func (s *Server) GracefulShutdown(ctx context.Context) int {
	s.EnterMaintenanceMode()

	interval := s.cfg.Game.ShutdownCheckIntervalDuration()
	ticker := s.clock.NewTicker(interval, "server", "shutdown")
	defer ticker.Stop()

wait:
	for {
		active := s.registry.ActiveCount()
		if active == 0 {
			break
		}
		s.log.Info("⏳ 等待对局结束", "active_games", active)
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
		}
	}

	remaining := s.registry.ActiveCount()
	if remaining > 0 {
		s.log.Warn("⚠️ 等待超时，强制关闭", "active_games", remaining)
	}

	delay := s.cfg.Game.RoomCleanupDelayDuration()
	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		fmt.Sprintf("🚧 服务器将在 %d 秒后停机维护！", int(delay.Seconds()))))

	// 留出时间让玩家看到结算
	if delay > 0 {
		timer := s.clock.NewTimer(delay, "server", "shutdown")
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}

	s.Shutdown()
	return remaining
}

// Shutdown 关闭所有客户端连接
func (s *Server) Shutdown() {
	s.clientsMu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
