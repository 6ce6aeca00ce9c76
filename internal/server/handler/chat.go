package handler

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/types"
)

// handleChat 房间聊天，内容原样转发
func (h *Handler) handleChat(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ChatPayload](msg)
	if err != nil {
		invalid(client)
		return
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return
	}
	if utf8.RuneCountInString(content) > h.maxChatLength {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "消息太长了"))
		return
	}

	if h.chatLimiter != nil {
		if allowed, reason := h.chatLimiter.AllowChat(client.GetID()); !allowed {
			client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, reason))
			return
		}
	}

	r, err := h.lookup(client, payload.RoomID)
	if err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	if err := r.Chat(ctx, client, content); err != nil {
		h.reject(client, msg.Type, err)
	}
}
