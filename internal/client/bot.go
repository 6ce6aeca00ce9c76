package client

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/palemoky/spade-three/internal/game/rule"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
)

// Bot 自动对局：加倍一律不加，出牌用最小能压过桌面的组合
type Bot struct {
	client *Client
	state  *GameState
	log    *log.Logger
	acted  int // 已为第几个状态行动过，避免重复出牌
	turns  int
}

// NewBot 创建机器人
func NewBot(c *Client, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		client: c,
		state:  NewGameState(),
		log:    logger.WithPrefix("bot"),
		acted:  -1,
	}
}

// State 当前对局状态
func (b *Bot) State() *GameState {
	return b.state
}

// Run 处理消息直到对局结束、客户端关闭或 ctx 取消。对局结束时返回 true。
func (b *Bot) Run(ctx context.Context) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case msg, ok := <-b.client.Messages():
			if !ok {
				return false, ErrClosed
			}
			if done := b.handle(msg); done {
				return true, nil
			}
		}
	}
}

// handle 处理一条消息，对局结束时返回 true
func (b *Bot) handle(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgPlayRejected:
		if p, err := codec.ParsePayload[protocol.PlayRejectedPayload](msg); err == nil {
			b.log.Warn("操作被拒绝", "action", p.Action, "reason", p.Reason)
		}
		// 出牌被拒时改为不出
		if b.state.MyTurn() && len(b.state.LastPlayed) > 0 && b.state.LastSeat != b.state.Seat {
			_ = b.client.Pass(b.state.RoomID)
		}
		return false
	case protocol.MsgRoomState:
		b.turns++
	}

	round := b.state.Round
	if !b.state.Apply(msg) {
		return false
	}
	// 第二轮加倍视为新的行动时机
	if msg.Type == protocol.MsgDoublingUpdate && b.state.Round != round {
		b.turns++
	}
	if b.state.Over {
		b.log.Info("🏁 对局结束", "won", b.state.Won(), "multiplier", b.state.Multiplier)
		return true
	}
	b.act()
	return false
}

func (b *Bot) act() {
	gs := b.state
	// 进房时 room_state 先于手牌到达
	if len(gs.Hand) == 0 {
		return
	}
	switch {
	case gs.MustChoose():
		if b.acted == b.turns {
			return
		}
		b.acted = b.turns
		if err := b.client.Choose(gs.RoomID, session.ChoiceNone); err != nil {
			b.log.Warn("发送加倍选择失败", "err", err)
		}

	case gs.MyTurn():
		if b.acted == b.turns {
			return
		}
		b.acted = b.turns

		last := gs.LastPlayed
		if gs.LastSeat == gs.Seat {
			last = nil
		}
		cards, ok := rule.Suggest(gs.Hand, last)
		var err error
		if ok {
			err = b.client.Play(gs.RoomID, cards)
		} else {
			err = b.client.Pass(gs.RoomID)
		}
		if err != nil {
			b.log.Warn("发送出牌失败", "err", err)
		}
	}
}
