package types

import (
	"github.com/palemoky/spade-three/internal/protocol"
)

// ClientInterface 定义客户端接口。SendMessage 不能阻塞。
type ClientInterface interface {
	GetID() string     // 连接 ID
	GetUserID() string // 认证后的用户 ID
	GetName() string
	GetRoom() string
	SetRoom(roomID string)
	SendMessage(msg *protocol.Message)
	Close()
}

// ChatLimiter 聊天速率限制器接口
type ChatLimiter interface {
	AllowChat(clientID string) (allowed bool, reason string)
	RemoveClient(clientID string)
}
