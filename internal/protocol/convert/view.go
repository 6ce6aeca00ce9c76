package convert

import (
	"time"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
)

// Presence 各座位是否在线
type Presence [session.SeatCount]bool

// 以下视图构建函数是手牌离开服务端前的唯一出口：
// 除 YourHand 外只输出手牌张数。

// ChoiceSealed 第一轮加倍未揭晓前，已作答的座位只显示为 sealed
const ChoiceSealed = "sealed"

// sealedChoice 第一轮是暗选，揭晓前不公开具体选项
func sealedChoice(snap session.Snapshot, c session.Choice) string {
	if c != session.ChoiceUnset && snap.Status == session.StatusDoubling && snap.Ballot.Round == 1 {
		return ChoiceSealed
	}
	return c.String()
}

// Seats 构建座位公开信息
func Seats(snap session.Snapshot, online Presence) []protocol.SeatInfo {
	seats := make([]protocol.SeatInfo, 0, session.SeatCount)
	for _, p := range snap.Players {
		seats = append(seats, protocol.SeatInfo{
			Seat:       p.Seat,
			PlayerID:   p.PlayerID,
			UserID:     p.UserID,
			Name:       p.Name,
			Team:       p.Team,
			CardsCount: len(p.Hand),
			CanAct:     p.CanAct,
			HasPassed:  p.HasPassed,
			Choice:     sealedChoice(snap, p.Choice),
			Online:     online[p.Seat],
		})
	}
	return seats
}

// RoomState 构建房间公开状态；deadline 为零值表示不限时
func RoomState(snap session.Snapshot, online Presence, deadline time.Time) protocol.RoomStatePayload {
	state := protocol.RoomStatePayload{
		RoomID:     snap.RoomID,
		Status:     snap.Status.String(),
		BaseStake:  snap.BaseStake,
		Multiplier: snap.Multiplier,
		TurnSeat:   snap.TurnSeat,
		Trick:      snap.Trick,
		Seats:      Seats(snap, online),
		Table: protocol.TableInfo{
			LastPlayed: CardsToInfos(snap.Table.LastPlayed),
			LastSeat:   snap.Table.LastSeat,
		},
	}
	if !snap.Table.Empty() {
		state.Table.LastType = snap.Table.LastType.String()
	}
	if !deadline.IsZero() {
		state.Deadline = deadline.UnixMilli()
	}
	return state
}

// YourHand 构建某个座位自己的手牌
func YourHand(snap session.Snapshot, seat int) protocol.YourHandPayload {
	return protocol.YourHandPayload{
		RoomID: snap.RoomID,
		Seat:   seat,
		Cards:  CardsToInfos(snap.Players[seat].Hand),
	}
}

// GameStarted 构建发牌完成通知
func GameStarted(snap session.Snapshot, online Presence) protocol.GameStartedPayload {
	return protocol.GameStartedPayload{
		RoomID:    snap.RoomID,
		BaseStake: snap.BaseStake,
		FirstSeat: snap.TurnSeat,
		Seats:     Seats(snap, online),
	}
}

// DoublingView 构建加倍公开视图
func DoublingView(snap session.Snapshot) protocol.DoublingUpdatePayload {
	b := snap.Ballot
	view := protocol.DoublingUpdatePayload{
		RoomID:     snap.RoomID,
		Round:      b.Round,
		Pending:    append([]int{}, snap.Pending...),
		First:      make([]string, session.SeatCount),
		Second:     make([]string, session.SeatCount),
		Doubler:    b.Doubler,
		Counter:    b.Counter,
		Multiplier: snap.Multiplier,
		Resolved:   snap.Status != session.StatusDoubling,
	}
	for s := range session.SeatCount {
		view.First[s] = sealedChoice(snap, b.First[s])
		view.Second[s] = b.Second[s].String()
	}
	return view
}

// GameOver 构建结算通知，只带各座位剩余张数
func GameOver(snap session.Snapshot) protocol.GameOverPayload {
	over := protocol.GameOverPayload{
		RoomID:      snap.RoomID,
		WinningTeam: snap.WinningTeam,
		Multiplier:  snap.Multiplier,
		BaseStake:   snap.BaseStake,
		Scores:      snap.Scores[:],
		Surrendered: snap.Surrendered,
	}
	if !snap.StartedAt.IsZero() && !snap.EndedAt.IsZero() {
		over.Duration = int64(snap.EndedAt.Sub(snap.StartedAt).Seconds())
	}
	for _, p := range snap.Players {
		over.CardsLeft = append(over.CardsLeft, len(p.Hand))
	}
	return over
}

// HintResult 构建提示结果
func HintResult(cards []card.Card, ok bool) protocol.HintResultPayload {
	return protocol.HintResultPayload{
		Cards: CardsToInfos(cards),
		Pass:  !ok,
	}
}
