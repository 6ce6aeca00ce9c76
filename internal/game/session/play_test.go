package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/rule"
)

// keepOnly 只保留 seat 的 keep，其余牌移到下家，牌总数不变
func keepOnly(gs *GameSession, seat int, keep ...card.Card) {
	rest, err := card.Remove(gs.players[seat].Hand, keep)
	if err != nil {
		panic(err)
	}
	next := gs.players[(seat+1)%SeatCount]
	next.Hand = card.Sorted(append(next.Hand, rest...))
	gs.players[seat].Hand = keep
}

func TestPlay_TripleThenPairMismatch(t *testing.T) {
	t.Parallel()

	gs := rigged(t, map[int][]card.Card{
		0: {s3, h3, d3},
		1: {s4, h4, d4, sK, hK},
	})
	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceNone, ChoiceNone)

	out, err := gs.Play(0, []card.Card{d3, s3, h3})
	require.NoError(t, err)
	assert.Equal(t, rule.Triple, out.Type)
	assert.Equal(t, 1, out.NextSeat)
	assert.NotContains(t, gs.players[0].Hand, s3)

	_, err = gs.Play(1, []card.Card{sK, hK})
	assert.ErrorIs(t, err, apperrors.ErrIllegalPlayType)

	out, err = gs.Play(1, []card.Card{s4, h4, d4})
	require.NoError(t, err)
	assert.Equal(t, rule.Triple, out.Type)

	snap := gs.Snapshot()
	assert.Equal(t, []card.Card{s4, h4, d4}, snap.Table.LastPlayed)
	assert.Equal(t, 1, snap.Table.LastSeat)
	assert.Len(t, snap.History, 2)
	assert.NoError(t, gs.CheckInvariants())
}

func TestPlay_NotYourTurnLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceNone, ChoiceNone)
	require.Equal(t, 0, gs.TurnSeat())

	for _, seat := range []int{1, 2, 3} {
		before := gs.Snapshot()
		_, err := gs.Play(seat, gs.players[seat].Hand[:1])
		assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)
		_, err = gs.Pass(seat)
		assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)
		assert.Equal(t, before, gs.Snapshot())
	}
}

func TestPlay_Rejections(t *testing.T) {
	t.Parallel()

	gs := rigged(t, map[int][]card.Card{
		0: {s3, s5},
		1: {h3, d3},
	})

	_, err := gs.Play(0, []card.Card{s3})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)

	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceNone, ChoiceNone)

	tests := []struct {
		name  string
		cards []card.Card
		want  error
	}{
		{"empty", nil, apperrors.ErrIllegalPlayType},
		{"not in hand", []card.Card{h3}, apperrors.ErrNotInHand},
		{"duplicate card", []card.Card{s3, s3}, apperrors.ErrNotInHand},
		{"mixed ranks", []card.Card{s3, s5}, apperrors.ErrIllegalPlayType},
	}
	for _, tt := range tests {
		before := gs.Snapshot()
		_, err := gs.Play(0, tt.cards)
		assert.ErrorIs(t, err, tt.want, tt.name)
		assert.Equal(t, before, gs.Snapshot(), tt.name)
	}

	_, err = gs.Pass(0)
	assert.ErrorIs(t, err, apperrors.ErrMustPlay)

	_, err = gs.Play(0, []card.Card{s3})
	require.NoError(t, err)

	_, err = gs.Play(1, []card.Card{h3})
	assert.ErrorIs(t, err, apperrors.ErrPlayTooLow)

	_, err = gs.Play(1, []card.Card{h3, d3})
	assert.ErrorIs(t, err, apperrors.ErrIllegalPlayType)
}

func TestPass_ThreePassesReturnLead(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceNone, ChoiceNone)

	_, err := gs.Play(0, []card.Card{s3})
	require.NoError(t, err)

	for _, seat := range []int{1, 2} {
		out, err := gs.Pass(seat)
		require.NoError(t, err)
		assert.False(t, out.TrickCleared)
		assert.Equal(t, seat+1, out.NextSeat)
	}

	out, err := gs.Pass(3)
	require.NoError(t, err)
	assert.True(t, out.TrickCleared)
	assert.Equal(t, 0, out.NextSeat)

	snap := gs.Snapshot()
	assert.True(t, snap.Table.Empty())
	assert.Equal(t, 0, snap.TurnSeat)
	assert.Equal(t, 2, snap.Trick)
	for _, p := range snap.Players {
		assert.False(t, p.HasPassed)
	}

	_, err = gs.Pass(0)
	assert.ErrorIs(t, err, apperrors.ErrMustPlay)
}

func TestPass_SkipsLockedSeat(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceNone, ChoiceDouble, ChoiceNone, ChoiceNone)
	_, err := gs.SubmitChoice(0, ChoiceNone)
	require.NoError(t, err)
	_, err = gs.SubmitChoice(2, ChoiceNone)
	require.NoError(t, err)
	require.False(t, gs.players[3].CanAct)

	_, err = gs.Play(0, []card.Card{s3})
	require.NoError(t, err)
	_, err = gs.Pass(1)
	require.NoError(t, err)

	out, err := gs.Pass(2)
	require.NoError(t, err)
	assert.True(t, out.TrickCleared)
	assert.Equal(t, 0, out.NextSeat)

	// 座位 2 出牌后跳过被锁定的座位 3
	_, err = gs.Play(0, gs.players[0].Hand[:1])
	require.NoError(t, err)
	_, err = gs.Pass(1)
	require.NoError(t, err)
	last := gs.players[2].Hand[len(gs.players[2].Hand)-1]
	out, err = gs.Play(2, []card.Card{last})
	require.NoError(t, err)
	assert.Equal(t, 0, out.NextSeat)
}

func TestPlay_SoleActorStartsFreshTrick(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceTriple, ChoiceNone, ChoiceNone, ChoiceNone)

	out, err := gs.Play(0, []card.Card{s3})
	require.NoError(t, err)
	assert.True(t, out.TrickCleared)
	assert.Equal(t, 0, out.NextSeat)
	assert.True(t, gs.Snapshot().Table.Empty())
}

func TestPlay_EmptyHandFinishesAndScores(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	gs.BaseStake = 200
	choose(t, gs, ChoiceNone, ChoiceDouble, ChoiceNone, ChoiceNone)
	_, err := gs.SubmitChoice(0, ChoiceNone)
	require.NoError(t, err)
	_, err = gs.SubmitChoice(2, ChoiceNone)
	require.NoError(t, err)
	require.Equal(t, 2, gs.Multiplier())

	keepOnly(gs, 0, s3)
	require.NoError(t, gs.CheckInvariants())

	out, err := gs.Play(0, []card.Card{s3})
	require.NoError(t, err)
	assert.True(t, out.Finished)
	assert.Equal(t, NoSeat, out.NextSeat)
	assert.Equal(t, StatusFinished, gs.Status())

	rec := gs.Record()
	assert.Equal(t, 0, rec.WinningTeam)
	assert.Equal(t, []int64{400, -400, 400, -400}, rec.Scores)

	var sum int64
	for _, s := range rec.Scores {
		sum += s
	}
	assert.Zero(t, sum)

	_, err = gs.Pass(1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)
	assert.ErrorIs(t, gs.Surrender(1), apperrors.ErrInvalidPhase)
}

func TestSurrender_DuringPlay(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceTriple, ChoiceNone)
	require.NoError(t, gs.Surrender(2))

	rec := gs.Record()
	assert.True(t, rec.Surrendered)
	assert.Equal(t, 1, rec.WinningTeam)
	assert.Equal(t, []int64{-300, 300, -300, 300}, rec.Scores)
	assert.Equal(t, KindSurrender, rec.History[len(rec.History)-1].Kind)

	assert.ErrorIs(t, gs.Surrender(9), apperrors.ErrInvalidPhase)
}

func TestHint(t *testing.T) {
	t.Parallel()

	gs := rigged(t, map[int][]card.Card{
		0: {s3},
		1: {h3, s4},
	})

	_, _, err := gs.Hint(0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)

	choose(t, gs, ChoiceNone, ChoiceNone, ChoiceNone, ChoiceNone)
	_, err = gs.Play(0, []card.Card{s3})
	require.NoError(t, err)

	cards, ok, err := gs.Hint(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []card.Card{s4}, cards)

	_, _, err = gs.Hint(-1)
	assert.ErrorIs(t, err, apperrors.ErrNotSeated)
}

func TestExpire_Doubling(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	_, err := gs.SubmitChoice(0, ChoiceDouble)
	require.NoError(t, err)

	out, err := gs.Expire()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out.Seats)
	assert.True(t, out.Ballot.Opened)

	out, err = gs.Expire()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, out.Seats)
	assert.True(t, out.Ballot.Resolved)
	assert.Equal(t, 2, gs.Multiplier())
	assert.Equal(t, [SeatCount]bool{true, true, false, true}, canAct(gs))
}

func TestExpire_Playing(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	choose(t, gs, ChoiceNone, ChoiceDouble, ChoiceNone, ChoiceNone)
	_, err := gs.Expire()
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, gs.Status())

	// 新一轮：托管打出最小单张
	out, err := gs.Expire()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, out.Seats)
	assert.Equal(t, []card.Card{h3}, out.Played)
	assert.Equal(t, 1, out.Play.NextSeat)

	// 桌面有牌：托管不出
	out, err = gs.Expire()
	require.NoError(t, err)
	assert.Empty(t, out.Played)
	assert.Equal(t, 2, out.Play.NextSeat)

	// 座位 3 被锁定，两人不出后一轮结束
	out, err = gs.Expire()
	require.NoError(t, err)
	assert.True(t, out.Play.TrickCleared)
	assert.Equal(t, 0, out.Play.NextSeat)

	snap := gs.Snapshot()
	require.Len(t, snap.History, 3)
	for _, h := range snap.History {
		assert.True(t, h.Auto)
	}
	assert.NoError(t, gs.CheckInvariants())
}

func TestExpire_Finished(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	require.NoError(t, gs.Surrender(0))
	_, err := gs.Expire()
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)
}
