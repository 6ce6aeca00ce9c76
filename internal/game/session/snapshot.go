package session

import (
	"slices"
	"time"

	"github.com/palemoky/spade-three/internal/game/card"
)

// PlayerSnapshot 座位状态副本，包含手牌，只能在网关的视图构建中按座位裁剪后发出
type PlayerSnapshot struct {
	PlayerID  string
	UserID    string
	Name      string
	Seat      int
	Team      int
	Hand      []card.Card
	CanAct    bool
	HasPassed bool
	Choice    Choice
}

// Snapshot 对局状态的深拷贝
type Snapshot struct {
	RoomID      string
	BaseStake   int64
	Status      Status
	Players     [SeatCount]PlayerSnapshot
	TurnSeat    int
	Table       TableState
	Ballot      Ballot
	Pending     []int // 当前加倍轮尚未作答的座位
	Multiplier  int
	Trick       int
	History     []HistoryEntry
	WinningTeam int
	Scores      [SeatCount]int64
	Surrendered bool
	AbortReason string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Snapshot 返回当前状态的深拷贝
func (gs *GameSession) Snapshot() Snapshot {
	snap := Snapshot{
		RoomID:      gs.RoomID,
		BaseStake:   gs.BaseStake,
		Status:      gs.status,
		TurnSeat:    gs.turnSeat,
		Table:       gs.table,
		Ballot:      gs.ballot,
		Pending:     gs.PendingSeats(),
		Multiplier:  gs.multiplier,
		Trick:       gs.trick,
		History:     slices.Clone(gs.history),
		WinningTeam: gs.winningTeam,
		Scores:      gs.scores,
		Surrendered: gs.surrendered,
		AbortReason: gs.abortReason,
		StartedAt:   gs.startedAt,
		EndedAt:     gs.endedAt,
	}
	snap.Table.LastPlayed = slices.Clone(gs.table.LastPlayed)
	snap.Ballot.Order = slices.Clone(gs.ballot.Order)
	for i := range snap.History {
		snap.History[i].Cards = slices.Clone(gs.history[i].Cards)
	}
	for i, p := range gs.players {
		snap.Players[i] = PlayerSnapshot{
			PlayerID:  p.PlayerID,
			UserID:    p.UserID,
			Name:      p.Name,
			Seat:      p.Seat,
			Team:      p.Team,
			Hand:      slices.Clone(p.Hand),
			CanAct:    p.CanAct,
			HasPassed: p.HasPassed,
			Choice:    p.Choice,
		}
	}
	return snap
}

// RecordPlayer 对局记录中的玩家
type RecordPlayer struct {
	PlayerID string `json:"player_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
	Team     int    `json:"team"`
	Score    int64  `json:"score"`
}

// Record 交给持久化方的对局记录
type Record struct {
	RoomID      string         `json:"room_id"`
	BaseStake   int64          `json:"base_stake"`
	Players     []RecordPlayer `json:"players"`
	History     []HistoryEntry `json:"play_history"`
	WinningTeam int            `json:"winning_team"`
	Multiplier  int            `json:"multiplier"`
	Scores      []int64        `json:"scores"`
	Duration    time.Duration  `json:"duration"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     time.Time      `json:"ended_at"`
	Surrendered bool           `json:"surrendered,omitempty"`
	Aborted     bool           `json:"aborted,omitempty"`
	AbortReason string         `json:"abort_reason,omitempty"`
}

// Record 生成对局记录；异常终止时返回已有的部分记录
func (gs *GameSession) Record() Record {
	snap := gs.Snapshot()
	rec := Record{
		RoomID:      snap.RoomID,
		BaseStake:   snap.BaseStake,
		History:     snap.History,
		WinningTeam: snap.WinningTeam,
		Multiplier:  snap.Multiplier,
		Scores:      snap.Scores[:],
		StartedAt:   snap.StartedAt,
		EndedAt:     snap.EndedAt,
		Surrendered: snap.Surrendered,
		Aborted:     snap.Status == StatusAborted,
		AbortReason: snap.AbortReason,
	}
	if !snap.EndedAt.IsZero() && !snap.StartedAt.IsZero() {
		rec.Duration = snap.EndedAt.Sub(snap.StartedAt)
	}
	for _, p := range snap.Players {
		rec.Players = append(rec.Players, RecordPlayer{
			PlayerID: p.PlayerID,
			UserID:   p.UserID,
			Name:     p.Name,
			Seat:     p.Seat,
			Team:     p.Team,
			Score:    snap.Scores[p.Seat],
		})
	}
	return rec
}
