package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/card"
)

// ErrCorrupted 内部不变量被破坏，对局必须终止
var ErrCorrupted = errors.New("session invariant violated")

// GameSession 一桌对局的权威状态机。非并发安全，由房间 actor 串行访问。
type GameSession struct {
	RoomID      string
	BaseStake   int64
	status      Status
	players     [SeatCount]*Player
	turnSeat    int
	table       TableState
	ballot      Ballot
	multiplier  int
	history     []HistoryEntry
	trick       int
	winningTeam int
	scores      [SeatCount]int64
	surrendered bool
	abortReason string
	startedAt   time.Time
	endedAt     time.Time

	clock quartz.Clock
}

// New 用 4 个入座玩家创建对局，状态为 waiting
func New(roomID string, seats []Seat, baseStake int64, clock quartz.Clock) (*GameSession, error) {
	if len(seats) != SeatCount {
		return nil, fmt.Errorf("session needs %d seats, got %d", SeatCount, len(seats))
	}
	if baseStake <= 0 {
		return nil, fmt.Errorf("base stake must be positive, got %d", baseStake)
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	gs := &GameSession{
		RoomID:      roomID,
		BaseStake:   baseStake,
		status:      StatusWaiting,
		turnSeat:    NoSeat,
		table:       TableState{LastSeat: NoSeat},
		winningTeam: NoSeat,
		clock:       clock,
	}

	users := make(map[string]bool, SeatCount)
	for i, s := range seats {
		if s.UserID == "" || users[s.UserID] {
			return nil, fmt.Errorf("seat %d: missing or duplicate user %q", i, s.UserID)
		}
		users[s.UserID] = true
		gs.players[i] = &Player{
			PlayerID: uuid.NewString(),
			UserID:   s.UserID,
			Name:     s.Name,
			Seat:     i,
			Team:     i % 2,
			Choice:   ChoiceUnset,
		}
	}
	return gs, nil
}

// Deal 洗牌发牌并进入加倍阶段
func (gs *GameSession) Deal(rng *rand.Rand) error {
	if gs.status != StatusWaiting {
		return apperrors.ErrInvalidPhase
	}
	gs.status = StatusDealing

	deck := card.NewDeck()
	card.Shuffle(deck, rng)

	var hands [SeatCount][]card.Card
	for i := 0; i < 52; i++ {
		hands[i%SeatCount] = append(hands[i%SeatCount], deck[i])
	}
	hands[0] = append(hands[0], deck[52])
	hands[1] = append(hands[1], deck[53])

	gs.beginDoubling(hands)
	return nil
}

// beginDoubling 摆好手牌，黑桃 3 持有者先手，打开第一轮加倍
func (gs *GameSession) beginDoubling(hands [SeatCount][]card.Card) {
	for i, p := range gs.players {
		p.Hand = hands[i]
		card.Sort(p.Hand)
		if slices.Contains(p.Hand, card.SpadeThree) {
			gs.turnSeat = p.Seat
		}
	}

	gs.startedAt = gs.clock.Now()
	gs.ballot = Ballot{Round: 1, Doubler: NoSeat, Counter: NoSeat}
	for i := range gs.ballot.Asked {
		gs.ballot.Asked[i] = true
	}
	gs.status = StatusDoubling
}

// Status 当前状态
func (gs *GameSession) Status() Status { return gs.status }

// Done 对局是否已结束（正常结束或异常终止）
func (gs *GameSession) Done() bool {
	return gs.status == StatusFinished || gs.status == StatusAborted
}

// TurnSeat 当前行动座位
func (gs *GameSession) TurnSeat() int { return gs.turnSeat }

// Multiplier 当前倍数，加倍阶段结束前为 0
func (gs *GameSession) Multiplier() int { return gs.multiplier }

// SeatOf 按外部用户 ID 查座位
func (gs *GameSession) SeatOf(userID string) (int, bool) {
	for _, p := range gs.players {
		if p.UserID == userID {
			return p.Seat, true
		}
	}
	return NoSeat, false
}

// nextActing 顺时针找到下一个可以行动的座位，找不到返回自身
func (gs *GameSession) nextActing(from int) int {
	for i := 1; i <= SeatCount; i++ {
		s := (from + i) % SeatCount
		if gs.players[s].CanAct {
			return s
		}
	}
	return from
}

func validSeat(seat int) bool {
	return seat >= 0 && seat < SeatCount
}

// finish 结算并进入 finished
func (gs *GameSession) finish(winningTeam int) {
	gs.status = StatusFinished
	gs.winningTeam = winningTeam
	gs.endedAt = gs.clock.Now()

	m := gs.multiplier
	if m == 0 {
		m = 1
	}
	stake := gs.BaseStake * int64(m)
	for _, p := range gs.players {
		if p.Team == winningTeam {
			gs.scores[p.Seat] = stake
		} else {
			gs.scores[p.Seat] = -stake
		}
	}
}

// Abort 不变量被破坏时终止对局，不产生输赢
func (gs *GameSession) Abort(reason error) {
	if gs.Done() {
		return
	}
	gs.status = StatusAborted
	gs.endedAt = gs.clock.Now()
	gs.scores = [SeatCount]int64{}
	if reason != nil {
		gs.abortReason = reason.Error()
	}
}

// CheckInvariants 校验手牌与已出牌的并集恰好是一副牌
func (gs *GameSession) CheckInvariants() error {
	if gs.status == StatusWaiting || gs.status == StatusAborted {
		return nil
	}

	seen := make(map[card.Card]int, card.DeckSize)
	total := 0
	for _, p := range gs.players {
		for _, c := range p.Hand {
			seen[c]++
			total++
		}
	}
	for _, h := range gs.history {
		for _, c := range h.Cards {
			seen[c]++
			total++
		}
	}
	if total != card.DeckSize {
		return fmt.Errorf("%w: %d cards accounted for", ErrCorrupted, total)
	}
	for _, c := range card.NewDeck() {
		if seen[c] != 1 {
			return fmt.Errorf("%w: card %s seen %d times", ErrCorrupted, c, seen[c])
		}
	}

	if gs.status == StatusPlaying {
		if gs.multiplier < 1 || gs.multiplier > 3 {
			return fmt.Errorf("%w: multiplier %d", ErrCorrupted, gs.multiplier)
		}
		if !validSeat(gs.turnSeat) || !gs.players[gs.turnSeat].CanAct {
			return fmt.Errorf("%w: turn seat %d cannot act", ErrCorrupted, gs.turnSeat)
		}
	}
	return nil
}
