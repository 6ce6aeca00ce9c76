package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/logger"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 消息最大大小
	maxMessageSize = 4096

	// 超速次数超过该值断开连接
	maxRateWarnings = 5
)

// Encoding 连接使用的帧格式
type Encoding int

const (
	EncodingJSON   Encoding = iota // 文本帧
	EncodingBinary                 // protowire 二进制帧
)

// ParseEncoding 解析 ?encoding= 参数，默认 JSON
func ParseEncoding(s string) Encoding {
	if s == "binary" {
		return EncodingBinary
	}
	return EncodingJSON
}

// Client 一个 WebSocket 连接，对应一个已认证的用户
type Client struct {
	ID     string // 连接 ID
	UserID string
	Name   string
	IP     string

	server   *Server
	conn     *websocket.Conn
	encoding Encoding
	send     chan []byte
	log      *log.Logger

	mu     sync.RWMutex
	roomID string
	closed bool
}

// NewClient 创建客户端
func NewClient(s *Server, conn *websocket.Conn, id auth.Identity, enc Encoding) *Client {
	connID := uuid.NewString()
	return &Client{
		ID:       connID,
		UserID:   id.UserID,
		Name:     id.Name,
		server:   s,
		conn:     conn,
		encoding: enc,
		send:     make(chan []byte, 256),
		log:      s.log.With("conn", connID, "user", id.UserID),
	}
}

// ReadPump 从 WebSocket 读取消息并交给处理器
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(c.log, r)
		}
		c.server.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	pongWait := c.server.pongWait()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.server.presence.Touch(c.UserID)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("读取错误", "err", err)
			}
			return
		}

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.GetWarningCount(c.ID) > maxRateWarnings {
				c.log.Warn("🚫 多次超速，断开连接", "ip", c.IP)
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		var msg *protocol.Message
		if frameType == websocket.BinaryMessage {
			msg, err = codec.DecodeBinary(data)
		} else {
			msg, err = codec.Decode(data)
		}
		if err != nil {
			c.log.Debug("消息解析错误", "err", err)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.presence.Touch(c.UserID)
		c.server.handler.Handle(c, msg)
	}
}

// WritePump 向 WebSocket 写入消息并定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.server.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.encoding == EncodingBinary {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encode 按连接的帧格式编码
func (c *Client) encode(msg *protocol.Message) ([]byte, error) {
	if c.encoding == EncodingBinary {
		return codec.EncodeBinary(msg)
	}
	return codec.Encode(msg)
}

// SendMessage 非阻塞发送，缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := c.encode(msg)
	if err != nil {
		c.log.Error("消息编码错误", "type", msg.Type, "err", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("发送缓冲区已满，关闭连接")
		go c.Close()
	}
}

// Close 关闭发送通道，WritePump 随后关闭连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) GetID() string     { return c.ID }
func (c *Client) GetUserID() string { return c.UserID }
func (c *Client) GetName() string   { return c.Name }

// SetRoom 设置连接所在房间，由房间协程调用
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom 获取连接所在房间
func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}
