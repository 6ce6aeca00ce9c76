//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/spade-three/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetUserID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetRoom(roomID string) {
	m.Called(roomID)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 简单的客户端，记录收到的消息，可在房间协程中安全使用
type SimpleClient struct {
	ID     string
	UserID string
	Name   string

	mu       sync.Mutex
	roomID   string
	messages []*protocol.Message
	closed   bool
}

// NewSimpleClient 创建测试客户端，连接 ID 与用户 ID 相同
func NewSimpleClient(userID, name string) *SimpleClient {
	return &SimpleClient{ID: "conn-" + userID, UserID: userID, Name: name}
}

func (c *SimpleClient) GetID() string     { return c.ID }
func (c *SimpleClient) GetUserID() string { return c.UserID }
func (c *SimpleClient) GetName() string   { return c.Name }

func (c *SimpleClient) GetRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *SimpleClient) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed 是否已被关闭
func (c *SimpleClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages 返回收到的消息副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.messages...)
}

// Types 按顺序返回收到的消息类型
func (c *SimpleClient) Types() []protocol.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]protocol.MessageType, len(c.messages))
	for i, m := range c.messages {
		types[i] = m.Type
	}
	return types
}

// Last 返回最近一条指定类型的消息，没有则返回 nil
func (c *SimpleClient) Last(t protocol.MessageType) *protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Type == t {
			return c.messages[i]
		}
	}
	return nil
}

// Reset 清空已收到的消息
func (c *SimpleClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
