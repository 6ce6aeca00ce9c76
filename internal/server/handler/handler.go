// Package handler 把客户端消息分发到对应房间
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/game/room"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/server/session"
	"github.com/palemoky/spade-three/internal/types"
)

const (
	defaultCommandTimeout = 5 * time.Second
	defaultMaxChatLength  = 200
)

// Deps 处理器依赖
type Deps struct {
	Registry       *room.Registry
	Auth           auth.Authenticator // 校验 join_room 携带的令牌，可为空
	ChatLimiter    types.ChatLimiter
	Presence       *session.Manager
	Clock          quartz.Clock
	Logger         *log.Logger
	MaxChatLength  int
	CommandTimeout time.Duration
}

// Handler 消息处理器
type Handler struct {
	registry       *room.Registry
	auth           auth.Authenticator
	chatLimiter    types.ChatLimiter
	presence       *session.Manager
	clock          quartz.Clock
	log            *log.Logger
	maxChatLength  int
	commandTimeout time.Duration
	handlers       map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(ctx context.Context, client types.ClientInterface, msg *protocol.Message)

// New 创建处理器
func New(deps Deps) *Handler {
	h := &Handler{
		registry:       deps.Registry,
		auth:           deps.Auth,
		chatLimiter:    deps.ChatLimiter,
		presence:       deps.Presence,
		clock:          deps.Clock,
		log:            deps.Logger,
		maxChatLength:  deps.MaxChatLength,
		commandTimeout: deps.CommandTimeout,
	}
	if h.clock == nil {
		h.clock = quartz.NewReal()
	}
	if h.log == nil {
		h.log = log.Default()
	}
	h.log = h.log.WithPrefix("handler")
	if h.maxChatLength <= 0 {
		h.maxChatLength = defaultMaxChatLength
	}
	if h.commandTimeout <= 0 {
		h.commandTimeout = defaultCommandTimeout
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 房间操作
		protocol.MsgJoinRoom:  h.handleJoinRoom,
		protocol.MsgLeaveRoom: h.handleLeaveRoom,

		// 游戏操作
		protocol.MsgPlayCards:      h.handlePlayCards,
		protocol.MsgPassTurn:       h.handlePass,
		protocol.MsgDoublingChoice: h.handleDoublingChoice,
		protocol.MsgSurrender:      h.handleSurrender,
		protocol.MsgHint:           h.handleHint,
		protocol.MsgChat:           h.handleChat,
	}
}

// Handle 处理一条客户端消息，在连接的读协程中调用
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	handler, ok := h.handlers[msg.Type]
	if !ok {
		h.log.Warn("⚠️ 未知消息类型", "type", msg.Type, "conn", client.GetID(), "payload_len", len(msg.Payload))
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.commandTimeout)
	defer cancel()
	handler(ctx, client, msg)
}

// lookup 按 roomID 查找房间，roomID 为空时使用连接当前所在房间
func (h *Handler) lookup(client types.ClientInterface, roomID string) (*room.Room, error) {
	if roomID == "" {
		roomID = client.GetRoom()
	}
	if roomID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	return h.registry.Get(roomID)
}

// reply 成功时回 ack，规则错误回 play_rejected，其他错误回 error
func (h *Handler) reply(client types.ClientInterface, action protocol.MessageType, err error) {
	if err == nil {
		client.SendMessage(codec.MustNewMessage(protocol.MsgAck, protocol.AckPayload{Action: action}))
		return
	}
	h.reject(client, action, err)
}

// reject 只回错误，成功时由房间直接下发结果
func (h *Handler) reject(client types.ClientInterface, action protocol.MessageType, err error) {
	if errors.Is(err, room.ErrRoomClosed) {
		err = apperrors.ErrSessionNotFound
	}

	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewRejectMessage(action, gameErr.Code))
		return
	}

	h.log.Error("处理消息失败", "action", action, "conn", client.GetID(), "err", err)
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}

// invalid 无法解析的 payload
func invalid(client types.ClientInterface) {
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}
