package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
)

const attachTimeout = 2 * time.Second

// bearerToken 依次从 ?token= 与 Authorization 头读取令牌
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		s.log.Info("🔧 维护模式，拒绝新连接", "ip", clientIP)
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	// 连接数限制，连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		s.log.Warn("🚫 达到最大连接数限制", "max", s.maxConnections, "ip", clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	upgraded := false
	defer func() {
		if !upgraded {
			<-s.semaphore
		}
	}()

	if !s.ipFilter.IsAllowed(clientIP) {
		s.log.Warn("🚫 IP 被过滤器拒绝", "ip", clientIP)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		s.log.Warn("🚫 来源验证失败", "origin", r.Header.Get("Origin"), "ip", clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		s.log.Warn("🚫 请求过于频繁", "ip", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	id, err := s.auth.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		s.log.Info("🔑 认证失败", "ip", clientIP, "err", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if id.Name == "" {
		id.Name = auth.GenerateNickname()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket 升级失败", "err", err)
		return
	}
	upgraded = true

	client := NewClient(s, conn, id, ParseEncoding(r.URL.Query().Get("encoding")))
	client.IP = clientIP
	s.registerClient(client)
	conns := s.presence.Connect(id.UserID, id.Name)

	// 已在对局中的用户自动回到房间
	connected := protocol.ConnectedPayload{ConnID: client.ID, UserID: id.UserID, Name: id.Name}
	rm, inGame := s.registry.RoomOfUser(id.UserID)
	if inGame {
		connected.RoomID = rm.ID
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, connected))

	if inGame {
		ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
		if err := rm.Attach(ctx, client); err != nil {
			client.log.Warn("自动进入房间失败", "room", rm.ID, "err", err)
		} else {
			s.presence.SetRoom(id.UserID, rm.ID)
		}
		cancel()
	}

	client.log.Info("✅ 玩家已连接", "name", id.Name, "ip", clientIP, "conns", conns)

	go client.ReadPump()
	go client.WritePump()
}

// handleDisconnect 连接断开：离开房间、更新在线状态、释放资源。
// 每个连接只在 ReadPump 退出时调用一次。
func (s *Server) handleDisconnect(c *Client) {
	if roomID := c.GetRoom(); roomID != "" {
		if rm, err := s.registry.Get(roomID); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
			_ = rm.Detach(ctx, c)
			cancel()
		}
	}

	remaining := s.presence.Disconnect(c.UserID)
	s.messageLimiter.RemoveClient(c.ID)
	s.chatLimiter.RemoveClient(c.ID)
	s.unregisterClient(c)
	c.Close()
	<-s.semaphore

	c.log.Info("❌ 玩家已断开", "remaining_conns", remaining)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, client.ID)
}

// healthResponse /health 返回值
type healthResponse struct {
	Status      string `json:"status"`
	Online      int    `json:"online"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
	ActiveGames int    `json:"active_games"`
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.IsMaintenanceMode() {
		status = "maintenance"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Online:      s.presence.OnlineCount(),
		Connections: s.GetOnlineCount(),
		Rooms:       s.registry.Len(),
		ActiveGames: s.registry.ActiveCount(),
	})
}

// handleLeaderboard 排行榜，?limit= 默认 10
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.leaderboard == nil {
		http.NotFound(w, r)
		return
	}
	entries, err := s.leaderboard.Leaderboard(r.Context(), queryLimit(r, 10))
	if err != nil {
		s.log.Error("读取排行榜失败", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistory 玩家对局历史，?user= 必填
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	list, err := s.history.History(r.Context(), userID, queryLimit(r, 20))
	if err != nil {
		s.log.Error("读取对局历史失败", "user", userID, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 100 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
