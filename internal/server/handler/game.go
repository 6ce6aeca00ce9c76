package handler

import (
	"context"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
	"github.com/palemoky/spade-three/internal/types"
)

// handlePlayCards 出牌
func (h *Handler) handlePlayCards(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PlayCardsPayload](msg)
	if err != nil {
		invalid(client)
		return
	}
	cards, err := convert.InfosToCards(payload.Cards)
	if err != nil {
		// 无法识别的牌不可能在手里
		h.reject(client, msg.Type, apperrors.ErrNotInHand)
		return
	}

	r, err := h.lookup(client, payload.RoomID)
	if err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	h.reply(client, msg.Type, r.Play(ctx, client, cards))
}

// handlePass 不出
func (h *Handler) handlePass(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
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
	h.reply(client, msg.Type, r.Pass(ctx, client))
}

// handleDoublingChoice 加倍选择
func (h *Handler) handleDoublingChoice(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.DoublingChoicePayload](msg)
	if err != nil {
		invalid(client)
		return
	}
	choice, ok := session.ParseChoice(payload.Choice)
	if !ok {
		h.reject(client, msg.Type, apperrors.ErrInvalidChoice)
		return
	}

	r, err := h.lookup(client, payload.RoomID)
	if err != nil {
		h.reject(client, msg.Type, err)
		return
	}
	h.reply(client, msg.Type, r.Choose(ctx, client, choice))
}

// handleSurrender 认输
func (h *Handler) handleSurrender(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
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
	h.reply(client, msg.Type, r.Surrender(ctx, client))
}

// handleHint 出牌提示，结果由房间直接发给请求者
func (h *Handler) handleHint(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
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
	if err := r.Hint(ctx, client); err != nil {
		h.reject(client, msg.Type, err)
	}
}
