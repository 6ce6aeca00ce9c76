package client

import (
	"slices"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
)

// GameState 客户端视角的对局状态，由服务器消息驱动，不做规则校验
type GameState struct {
	RoomID string
	Seat   int
	Team   int

	Hand []card.Card

	Status     string
	TurnSeat   int
	Multiplier int
	Seats      []protocol.SeatInfo
	LastPlayed []card.Card
	LastSeat   int

	// 加倍
	PendingSeats []int
	Round        int

	// 结果
	WinningTeam int
	Over        bool

	CardCounter *CardCounter
}

// NewGameState 创建对局状态
func NewGameState() *GameState {
	gs := &GameState{CardCounter: NewCardCounter()}
	gs.Reset()
	return gs
}

// Reset 清空状态
func (gs *GameState) Reset() {
	counter := gs.CardCounter
	if counter == nil {
		counter = NewCardCounter()
	}
	counter.Reset()
	*gs = GameState{
		Seat:        -1,
		TurnSeat:    -1,
		LastSeat:    -1,
		WinningTeam: -1,
		CardCounter: counter,
	}
}

// Apply 用一条服务器消息更新状态，返回消息是否改变了状态
func (gs *GameState) Apply(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgJoined:
		p, err := codec.ParsePayload[protocol.JoinedPayload](msg)
		if err != nil {
			return false
		}
		if p.RoomID != gs.RoomID {
			gs.Reset()
		}
		gs.RoomID, gs.Seat, gs.Team = p.RoomID, p.Seat, p.Team
		return true

	case protocol.MsgLeft:
		gs.Reset()
		return true

	case protocol.MsgYourHand:
		p, err := codec.ParsePayload[protocol.YourHandPayload](msg)
		if err != nil {
			return false
		}
		hand, err := convert.InfosToCards(p.Cards)
		if err != nil {
			return false
		}
		card.Sort(hand)
		gs.Hand = hand
		gs.CardCounter.SetHand(hand)
		return true

	case protocol.MsgRoomState:
		p, err := codec.ParsePayload[protocol.RoomStatePayload](msg)
		if err != nil {
			return false
		}
		played, err := convert.InfosToCards(p.Table.LastPlayed)
		if err != nil {
			return false
		}
		if len(played) > 0 && (p.Table.LastSeat != gs.LastSeat || !slices.Equal(played, gs.LastPlayed)) {
			gs.CardCounter.Observe(p.Table.LastSeat, played)
		}
		gs.RoomID = p.RoomID
		gs.Status = p.Status
		gs.TurnSeat = p.TurnSeat
		gs.Multiplier = p.Multiplier
		gs.Seats = p.Seats
		gs.LastPlayed = played
		gs.LastSeat = p.Table.LastSeat
		return true

	case protocol.MsgDoublingUpdate:
		p, err := codec.ParsePayload[protocol.DoublingUpdatePayload](msg)
		if err != nil {
			return false
		}
		gs.Round = p.Round
		gs.PendingSeats = p.Pending
		gs.Multiplier = p.Multiplier
		return true

	case protocol.MsgGameOver:
		p, err := codec.ParsePayload[protocol.GameOverPayload](msg)
		if err != nil {
			return false
		}
		gs.Over = true
		gs.Status = "finished"
		gs.WinningTeam = p.WinningTeam
		gs.Multiplier = p.Multiplier
		return true

	case protocol.MsgGameAborted:
		gs.Over = true
		gs.Status = "aborted"
		return true
	}
	return false
}

// MyTurn 出牌阶段是否轮到自己
func (gs *GameState) MyTurn() bool {
	return gs.Status == "playing" && gs.Seat >= 0 && gs.TurnSeat == gs.Seat
}

// MustChoose 当前加倍轮是否等待自己作答
func (gs *GameState) MustChoose() bool {
	return gs.Status == "doubling" && gs.Seat >= 0 && slices.Contains(gs.PendingSeats, gs.Seat)
}

// Won 自己的队伍是否获胜
func (gs *GameState) Won() bool {
	return gs.Over && gs.WinningTeam == gs.Team
}
