package session

import (
	"github.com/palemoky/spade-three/internal/apperrors"
)

// BallotOutcome 一次加倍提交后的结果
type BallotOutcome struct {
	Round    int  // 提交后所处的轮次
	Opened   bool // 打开了第二轮（反加倍）
	Resolved bool // 加倍结束，进入出牌阶段
}

// SubmitChoice 提交加倍选择。第一轮可选 none/double/triple，第二轮只问被加倍方 none/antiDouble。
func (gs *GameSession) SubmitChoice(seat int, c Choice) (BallotOutcome, error) {
	if gs.status != StatusDoubling {
		return BallotOutcome{}, apperrors.ErrInvalidPhase
	}
	if !validSeat(seat) {
		return BallotOutcome{}, apperrors.ErrNotSeated
	}
	if c == ChoiceUnset || c > ChoiceAntiDouble {
		return BallotOutcome{}, apperrors.ErrInvalidChoice
	}

	b := &gs.ballot
	switch b.Round {
	case 1:
		// 反加倍只在第二轮出现
		if c == ChoiceAntiDouble {
			return BallotOutcome{}, apperrors.ErrInvalidPhase
		}
		if b.First[seat] != ChoiceUnset {
			return BallotOutcome{}, apperrors.ErrAlreadyChosen
		}
		b.First[seat] = c
	case 2:
		if !b.Asked[seat] {
			return BallotOutcome{}, apperrors.ErrNotYourTurn
		}
		if c != ChoiceNone && c != ChoiceAntiDouble {
			return BallotOutcome{}, apperrors.ErrInvalidPhase
		}
		if b.Second[seat] != ChoiceUnset {
			return BallotOutcome{}, apperrors.ErrAlreadyChosen
		}
		b.Second[seat] = c
	}

	b.Order = append(b.Order, seat)
	gs.players[seat].Choice = c

	if len(gs.PendingSeats()) > 0 {
		return BallotOutcome{Round: b.Round}, nil
	}
	if b.Round == 1 {
		return gs.resolveFirstRound(), nil
	}
	gs.resolveSecondRound()
	return BallotOutcome{Round: 2, Resolved: true}, nil
}

// PendingSeats 当前轮尚未作答的座位
func (gs *GameSession) PendingSeats() []int {
	if gs.status != StatusDoubling {
		return nil
	}
	var pending []int
	for s := 0; s < SeatCount; s++ {
		if !gs.ballot.Asked[s] {
			continue
		}
		choices := gs.ballot.First
		if gs.ballot.Round == 2 {
			choices = gs.ballot.Second
		}
		if choices[s] == ChoiceUnset {
			pending = append(pending, s)
		}
	}
	return pending
}

// firstWith 按提交顺序找到第一个做出该选择的座位
func (gs *GameSession) firstWith(choices [SeatCount]Choice, c Choice, team int) int {
	for _, s := range gs.ballot.Order {
		if choices[s] == c && (team == NoSeat || gs.players[s].Team == team) {
			return s
		}
	}
	return NoSeat
}

func (gs *GameSession) resolveFirstRound() BallotOutcome {
	b := &gs.ballot

	// 有人三倍：只有第一个三倍者可以出牌
	if tripler := gs.firstWith(b.First, ChoiceTriple, NoSeat); tripler != NoSeat {
		b.Doubler = tripler
		gs.startPlaying(3, tripler)
		return BallotOutcome{Round: 1, Resolved: true}
	}

	doubler := gs.firstWith(b.First, ChoiceDouble, NoSeat)
	if doubler == NoSeat {
		gs.startPlaying(1)
		return BallotOutcome{Round: 1, Resolved: true}
	}
	b.Doubler = doubler

	// 第二轮只问被加倍方的两个座位，他们第一轮的选择作废（对方也加倍时同样重新作答）
	opposing := 1 - gs.players[doubler].Team
	b.Round = 2
	b.Order = nil
	for s := 0; s < SeatCount; s++ {
		b.Asked[s] = gs.players[s].Team == opposing
		if b.Asked[s] {
			gs.players[s].Choice = ChoiceUnset
		}
	}
	return BallotOutcome{Round: 2, Opened: true}
}

func (gs *GameSession) resolveSecondRound() {
	b := &gs.ballot
	if counter := gs.firstWith(b.Second, ChoiceAntiDouble, NoSeat); counter != NoSeat {
		b.Counter = counter
		gs.startPlaying(3, b.Doubler, counter)
		return
	}

	// 加倍者的队友不能出牌
	teammate := (b.Doubler + 2) % SeatCount
	var acting []int
	for s := 0; s < SeatCount; s++ {
		if s != teammate {
			acting = append(acting, s)
		}
	}
	gs.startPlaying(2, acting...)
}

// startPlaying 固定倍数并进入出牌阶段；acting 为空表示所有座位都能出牌
func (gs *GameSession) startPlaying(multiplier int, acting ...int) {
	gs.multiplier = multiplier
	for _, p := range gs.players {
		p.CanAct = len(acting) == 0
		p.HasPassed = false
	}
	for _, s := range acting {
		gs.players[s].CanAct = true
	}
	for i := range gs.ballot.Asked {
		gs.ballot.Asked[i] = false
	}

	gs.table = TableState{LastSeat: NoSeat}
	gs.trick = 1
	gs.status = StatusPlaying
	if !gs.players[gs.turnSeat].CanAct {
		gs.turnSeat = gs.nextActing(gs.turnSeat)
	}
}
