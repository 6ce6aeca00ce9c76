package session

import (
	"fmt"
	"slices"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/rule"
)

// PlayOutcome 一次出牌/不出后的结果
type PlayOutcome struct {
	Type         rule.PlayType
	TrickCleared bool // 一轮结束，桌面清空
	NextSeat     int
	Finished     bool
}

// checkTurn 出牌与不出共用的前置校验
func (gs *GameSession) checkTurn(seat int) error {
	if gs.status != StatusPlaying {
		return apperrors.ErrInvalidPhase
	}
	if !validSeat(seat) {
		return apperrors.ErrNotSeated
	}
	if seat != gs.turnSeat {
		return apperrors.ErrNotYourTurn
	}
	if !gs.players[seat].CanAct {
		return apperrors.ErrLockedOut
	}
	return nil
}

// Play 出牌。校验失败时不修改任何状态。
func (gs *GameSession) Play(seat int, cards []card.Card) (PlayOutcome, error) {
	if err := gs.checkTurn(seat); err != nil {
		return PlayOutcome{}, err
	}
	p := gs.players[seat]

	if len(cards) == 0 {
		return PlayOutcome{}, apperrors.ErrIllegalPlayType
	}
	if !card.Contains(p.Hand, cards) {
		return PlayOutcome{}, apperrors.ErrNotInHand
	}
	t := rule.Classify(cards)
	if t == rule.Invalid {
		return PlayOutcome{}, apperrors.ErrIllegalPlayType
	}
	if !gs.table.Empty() {
		if t != gs.table.LastType {
			return PlayOutcome{}, apperrors.ErrIllegalPlayType
		}
		if o, err := rule.Compare(cards, gs.table.LastPlayed); err != nil || o != rule.Greater {
			return PlayOutcome{}, apperrors.ErrPlayTooLow
		}
	}

	rest, err := card.Remove(p.Hand, cards)
	if err != nil {
		return PlayOutcome{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	played := card.Sorted(cards)
	p.Hand = rest
	gs.table = TableState{LastPlayed: played, LastType: t, LastSeat: seat}
	gs.history = append(gs.history, HistoryEntry{
		Seat:     seat,
		PlayerID: p.PlayerID,
		Kind:     KindPlay,
		Cards:    slices.Clone(played),
		Type:     t,
		Trick:    gs.trick,
		At:       gs.clock.Now(),
	})
	for _, pl := range gs.players {
		pl.HasPassed = false
	}

	out := PlayOutcome{Type: t}
	if len(p.Hand) == 0 {
		gs.finish(p.Team)
		out.Finished = true
		out.NextSeat = NoSeat
		return out, nil
	}

	next := gs.nextActing(seat)
	if next == seat {
		// 只剩自己能出牌，直接开始新一轮
		gs.clearTrick()
		out.TrickCleared = true
	}
	gs.turnSeat = next
	out.NextSeat = next
	return out, nil
}

// Pass 不出。新一轮（桌面为空）不能不出。
func (gs *GameSession) Pass(seat int) (PlayOutcome, error) {
	return gs.pass(seat, false)
}

func (gs *GameSession) pass(seat int, auto bool) (PlayOutcome, error) {
	if err := gs.checkTurn(seat); err != nil {
		return PlayOutcome{}, err
	}
	if gs.table.Empty() {
		return PlayOutcome{}, apperrors.ErrMustPlay
	}

	p := gs.players[seat]
	p.HasPassed = true
	gs.history = append(gs.history, HistoryEntry{
		Seat:     seat,
		PlayerID: p.PlayerID,
		Kind:     KindPass,
		Trick:    gs.trick,
		Auto:     auto,
		At:       gs.clock.Now(),
	})

	allPassed := true
	for _, pl := range gs.players {
		if pl.CanAct && pl.Seat != gs.table.LastSeat && !pl.HasPassed {
			allPassed = false
			break
		}
	}

	if allPassed {
		leader := gs.table.LastSeat
		gs.clearTrick()
		gs.turnSeat = leader
		return PlayOutcome{TrickCleared: true, NextSeat: leader}, nil
	}

	gs.turnSeat = gs.nextActing(seat)
	return PlayOutcome{NextSeat: gs.turnSeat}, nil
}

func (gs *GameSession) clearTrick() {
	gs.table = TableState{LastSeat: NoSeat}
	for _, pl := range gs.players {
		pl.HasPassed = false
	}
	gs.trick++
}

// Surrender 认输，对方队伍获胜
func (gs *GameSession) Surrender(seat int) error {
	if gs.status != StatusDoubling && gs.status != StatusPlaying {
		return apperrors.ErrInvalidPhase
	}
	if !validSeat(seat) {
		return apperrors.ErrNotSeated
	}

	p := gs.players[seat]
	gs.history = append(gs.history, HistoryEntry{
		Seat:     seat,
		PlayerID: p.PlayerID,
		Kind:     KindSurrender,
		Trick:    gs.trick,
		At:       gs.clock.Now(),
	})
	gs.surrendered = true
	gs.finish(1 - p.Team)
	return nil
}

// Hint 给出能压过桌面的最小出牌；ok 为 false 表示只能不出
func (gs *GameSession) Hint(seat int) ([]card.Card, bool, error) {
	if gs.status != StatusPlaying {
		return nil, false, apperrors.ErrInvalidPhase
	}
	if !validSeat(seat) {
		return nil, false, apperrors.ErrNotSeated
	}
	cards, ok := rule.Suggest(gs.players[seat].Hand, gs.table.LastPlayed)
	return cards, ok, nil
}

// ExpireOutcome 超时托管的处理结果
type ExpireOutcome struct {
	Seats  []int // 被托管的座位
	Ballot BallotOutcome
	Play   PlayOutcome
	Played []card.Card // 托管出的牌，为空表示不出
}

// Expire 当前等待的行动超时：加倍阶段为未作答的座位选 none，
// 出牌阶段桌面有牌则不出，否则打出最小的单张。
func (gs *GameSession) Expire() (ExpireOutcome, error) {
	switch gs.status {
	case StatusDoubling:
		var out ExpireOutcome
		for _, s := range gs.PendingSeats() {
			bo, err := gs.SubmitChoice(s, ChoiceNone)
			if err != nil {
				return out, err
			}
			out.Seats = append(out.Seats, s)
			out.Ballot = bo
		}
		return out, nil

	case StatusPlaying:
		seat := gs.turnSeat
		out := ExpireOutcome{Seats: []int{seat}}
		if !gs.table.Empty() {
			po, err := gs.pass(seat, true)
			out.Play = po
			return out, err
		}
		cards, _ := rule.Suggest(gs.players[seat].Hand, nil)
		po, err := gs.Play(seat, cards)
		if err == nil {
			gs.history[len(gs.history)-1].Auto = true
			out.Played = cards
		}
		out.Play = po
		return out, err

	default:
		return ExpireOutcome{}, apperrors.ErrInvalidPhase
	}
}
