package handler

import (
	"context"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/types"
)

// handlePing 心跳
func (h *Handler) handlePing(_ context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		invalid(client)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: h.clock.Now().UnixMilli(),
	}))
}

// handleJoinRoom 进入房间（含断线重连），成功后房间下发完整快照
func (h *Handler) handleJoinRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil {
		invalid(client)
		return
	}

	// 携带的令牌必须属于当前连接的用户
	if payload.AuthToken != "" && h.auth != nil {
		id, err := h.auth.Authenticate(ctx, payload.AuthToken)
		if err != nil {
			h.reject(client, msg.Type, err)
			return
		}
		if id.UserID != client.GetUserID() {
			h.reject(client, msg.Type, apperrors.ErrUnauthorized)
			return
		}
	}

	roomID := payload.RoomID
	if roomID == "" {
		if r, ok := h.registry.RoomOfUser(client.GetUserID()); ok {
			roomID = r.ID
		}
	}
	r, err := h.lookup(client, roomID)
	if err != nil {
		h.reject(client, msg.Type, err)
		return
	}

	// 先离开之前的房间
	if prev := client.GetRoom(); prev != "" && prev != r.ID {
		if old, err := h.registry.Get(prev); err == nil {
			_ = old.Detach(ctx, client)
		}
	}

	if err := r.Attach(ctx, client); err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	if h.presence != nil {
		h.presence.SetRoom(client.GetUserID(), r.ID)
	}
	h.log.Info("🚪 进入房间", "room", r.ID, "user", client.GetUserID())
}

// handleLeaveRoom 离开房间，座位保留，之后可以重新进入
func (h *Handler) handleLeaveRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.RoomPayload](msg)
	if err != nil {
		invalid(client)
		return
	}
	r, err := h.lookup(client, payload.RoomID)
	if err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	if err := r.Detach(ctx, client); err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	if h.presence != nil {
		h.presence.SetRoom(client.GetUserID(), "")
	}
}
