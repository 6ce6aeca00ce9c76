// Package client 对局服务器的 WebSocket 客户端，断线后自动重连
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 最大重连次数
	maxReconnectAttempts = 5
	// 首次重连间隔，之后指数退避
	reconnectInterval = 2 * time.Second
	maxBackoff        = 30 * time.Second
)

// ErrClosed 客户端已关闭
var ErrClosed = errors.New("client closed")

// Client WebSocket 客户端。服务器在重连时自动把用户放回原来的房间。
type Client struct {
	URL   string
	token string
	log   *log.Logger

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	connID string
	userID string
	name   string

	latency atomic.Int64 // 毫秒

	// 回调在读协程中执行
	OnMessage      func(*protocol.Message)
	OnReconnecting func(attempt, max int)
	OnReconnect    func()
	OnClose        func()

	mu           sync.RWMutex
	closed       bool
	reconnecting atomic.Bool
	backoff      time.Duration
}

// New 创建客户端，token 通过 Authorization 头传给服务器
func New(url, token string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		URL:     url,
		token:   token,
		log:     logger.WithPrefix("client"),
		send:    make(chan []byte, 256),
		receive: make(chan *protocol.Message, 256),
		done:    make(chan struct{}),
		backoff: reconnectInterval,
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := dialer.DialContext(ctx, c.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Connect 连接服务器并启动读写协程
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.start(conn)
	return nil
}

func (c *Client) start(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	done := c.done
	c.mu.Unlock()

	// 读协程退出时关闭 stop，旧连接的写协程随之退出
	stop := make(chan struct{})
	go c.readPump(conn, stop)
	go c.writePump(conn, done, stop)
}

// Messages 收到的消息，缓冲区满时丢弃
func (c *Client) Messages() <-chan *protocol.Message {
	return c.receive
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close 关闭客户端，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Identity 服务器在 connected 中确认的连接与用户
func (c *Client) Identity() (connID, userID, name string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID, c.userID, c.name
}

// Latency 最近一次 ping 的往返时间
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load()) * time.Millisecond
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}

// readPump 从服务器读取消息，连接断开后尝试重连
func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer func() {
		close(stop)
		_ = conn.Close()
		if c.IsClosed() {
			if c.OnClose != nil {
				c.OnClose()
			}
			return
		}
		go c.reconnect()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("读取错误", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg *protocol.Message
		if frameType == websocket.BinaryMessage {
			msg, err = codec.DecodeBinary(data)
		} else {
			msg, err = codec.Decode(data)
		}
		if err != nil {
			c.log.Debug("消息解析错误", "err", err)
			continue
		}
		c.observe(msg)

		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
		select {
		case c.receive <- msg:
		default:
		}
	}
}

// observe 记录连接信息与延迟
func (c *Client) observe(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgConnected:
		if p, err := codec.ParsePayload[protocol.ConnectedPayload](msg); err == nil {
			c.mu.Lock()
			c.connID, c.userID, c.name = p.ConnID, p.UserID, p.Name
			c.mu.Unlock()
		}
	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil {
			c.latency.Store(time.Now().UnixMilli() - p.ClientTimestamp)
		}
	}
}

// writePump 向服务器写入消息并定期发送 ping
func (c *Client) writePump(conn *websocket.Conn, done, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// reconnect 指数退避重连，全部失败后关闭客户端
func (c *Client) reconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	backoff := c.backoff
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if c.OnReconnecting != nil {
			c.OnReconnecting(attempt, maxReconnectAttempts)
		}

		c.mu.RLock()
		done := c.done
		c.mu.RUnlock()
		select {
		case <-done:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			c.log.Debug("重连失败", "attempt", attempt, "err", err)
			continue
		}
		if c.IsClosed() {
			_ = conn.Close()
			return
		}

		c.log.Info("🔌 已重连", "attempt", attempt)
		c.start(conn)
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		return
	}

	c.log.Warn("重连失败，放弃", "attempts", maxReconnectAttempts)
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}
