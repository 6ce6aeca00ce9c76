// Package session 跟踪玩家在线状态与所在房间
package session

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// expireAfter 离线超过该时长的会话被清理
const expireAfter = 10 * time.Minute

// PlayerSession 玩家会话，同一用户可以有多个连接
type PlayerSession struct {
	UserID         string
	Name           string
	RoomID         string
	Conns          int
	LastSeen       time.Time
	DisconnectedAt time.Time
}

// IsOnline 至少有一个连接
func (s PlayerSession) IsOnline() bool {
	return s.Conns > 0
}

// Manager 会话管理器：userID -> session
type Manager struct {
	clock    quartz.Clock
	mu       sync.RWMutex
	sessions map[string]*PlayerSession
}

// NewManager 创建会话管理器
func NewManager(clock quartz.Clock) *Manager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Manager{
		clock:    clock,
		sessions: make(map[string]*PlayerSession),
	}
}

// Connect 新连接建立，返回该用户当前的连接数
func (m *Manager) Connect(userID, name string) int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		s = &PlayerSession{UserID: userID}
		m.sessions[userID] = s
	}
	s.Name = name
	s.Conns++
	s.LastSeen = now
	s.DisconnectedAt = time.Time{}
	return s.Conns
}

// Disconnect 连接断开，返回该用户剩余的连接数
func (m *Manager) Disconnect(userID string) int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return 0
	}
	if s.Conns > 0 {
		s.Conns--
	}
	if s.Conns == 0 {
		s.DisconnectedAt = now
	}
	return s.Conns
}

// Touch 收到消息时刷新最近活跃时间
func (m *Manager) Touch(userID string) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.LastSeen = now
	}
}

// SetRoom 设置玩家所在房间
func (m *Manager) SetRoom(userID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.RoomID = roomID
	}
}

// Get 获取会话副本
func (m *Manager) Get(userID string) (PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return PlayerSession{}, false
	}
	return *s, true
}

// IsOnline 检查玩家是否在线
func (m *Manager) IsOnline(userID string) bool {
	s, ok := m.Get(userID)
	return ok && s.IsOnline()
}

// OnlineCount 在线玩家数（按用户计）
func (m *Manager) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.IsOnline() {
			n++
		}
	}
	return n
}

// Cleanup 清理离线过久的会话，返回清理数量
func (m *Manager) Cleanup() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, s := range m.sessions {
		if !s.IsOnline() && now.Sub(s.DisconnectedAt) > expireAfter {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}
