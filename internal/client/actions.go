package client

import (
	"time"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
)

// --- 便捷方法，roomID 为空时使用连接当前所在房间 ---

// Ping 心跳，pong 到达后更新延迟
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}

// JoinRoom 进入房间
func (c *Client) JoinRoom(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomID: roomID}))
}

// LeaveRoom 离开房间
func (c *Client) LeaveRoom(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeaveRoom, protocol.RoomPayload{RoomID: roomID}))
}

// Play 出牌
func (c *Client) Play(roomID string, cards []card.Card) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPlayCards, protocol.PlayCardsPayload{
		RoomID: roomID,
		Cards:  convert.CardsToInfos(cards),
	}))
}

// Pass 不出
func (c *Client) Pass(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPassTurn, protocol.RoomPayload{RoomID: roomID}))
}

// Choose 加倍选择
func (c *Client) Choose(roomID string, choice session.Choice) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgDoublingChoice, protocol.DoublingChoicePayload{
		RoomID: roomID,
		Choice: choice.String(),
	}))
}

// Surrender 认输
func (c *Client) Surrender(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgSurrender, protocol.RoomPayload{RoomID: roomID}))
}

// Hint 请求出牌提示
func (c *Client) Hint(roomID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgHint, protocol.RoomPayload{RoomID: roomID}))
}

// Chat 发送聊天消息
func (c *Client) Chat(roomID, content string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{
		RoomID:  roomID,
		Content: content,
	}))
}
