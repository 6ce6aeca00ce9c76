package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/apperrors"
)

func TestDoublingResolution(t *testing.T) {
	t.Parallel()

	const (
		N = ChoiceNone
		D = ChoiceDouble
		T = ChoiceTriple
		A = ChoiceAntiDouble
	)

	tests := []struct {
		name       string
		first      []Choice
		second     map[int]Choice // 第二轮按座位作答，按座位号顺序提交
		multiplier int
		canAct     [SeatCount]bool
		turnSeat   int
	}{
		{
			name:       "no one doubles",
			first:      []Choice{N, N, N, N},
			multiplier: 1,
			canAct:     [SeatCount]bool{true, true, true, true},
			turnSeat:   0,
		},
		{
			name:       "single double unanswered",
			first:      []Choice{N, D, N, N},
			second:     map[int]Choice{0: N, 2: N},
			multiplier: 2,
			canAct:     [SeatCount]bool{true, true, true, false},
			turnSeat:   0,
		},
		{
			name:       "double answered by anti-double",
			first:      []Choice{N, D, N, N},
			second:     map[int]Choice{0: N, 2: A},
			multiplier: 3,
			canAct:     [SeatCount]bool{false, true, true, false},
			turnSeat:   1,
		},
		{
			name:       "triple locks out everyone else",
			first:      []Choice{N, N, T, D},
			multiplier: 3,
			canAct:     [SeatCount]bool{false, false, true, false},
			turnSeat:   2,
		},
		{
			name:       "both teams double, opposing team declines",
			first:      []Choice{N, D, D, N},
			second:     map[int]Choice{0: N, 2: N},
			multiplier: 2,
			canAct:     [SeatCount]bool{true, true, true, false},
			turnSeat:   0,
		},
		{
			name:       "both teams double, opposing team anti-doubles",
			first:      []Choice{N, D, D, N},
			second:     map[int]Choice{0: N, 2: A},
			multiplier: 3,
			canAct:     [SeatCount]bool{false, true, true, false},
			turnSeat:   1,
		},
		{
			name:       "teammates both double",
			first:      []Choice{D, N, D, N},
			second:     map[int]Choice{1: N, 3: N},
			multiplier: 2,
			canAct:     [SeatCount]bool{true, true, false, true},
			turnSeat:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gs := rigged(t, nil)
			out := choose(t, gs, tt.first...)

			if tt.second != nil {
				require.True(t, out.Opened)
				assert.Equal(t, 2, out.Round)
				assert.Equal(t, StatusDoubling, gs.Status())

				for s := 0; s < SeatCount; s++ {
					c, ok := tt.second[s]
					if !ok {
						continue
					}
					_, err := gs.SubmitChoice(s, c)
					require.NoError(t, err)
				}
			}

			assert.Equal(t, StatusPlaying, gs.Status())
			assert.Equal(t, tt.multiplier, gs.Multiplier())
			assert.Equal(t, tt.canAct, canAct(gs))
			assert.Equal(t, tt.turnSeat, gs.TurnSeat())
			assert.Empty(t, gs.PendingSeats())
			assert.NoError(t, gs.CheckInvariants())
		})
	}
}

func TestDoubling_FirstTriplerWins(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	for _, step := range []struct {
		seat int
		c    Choice
	}{
		{3, ChoiceTriple},
		{1, ChoiceTriple},
		{0, ChoiceNone},
		{2, ChoiceDouble},
	} {
		_, err := gs.SubmitChoice(step.seat, step.c)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, gs.Multiplier())
	assert.Equal(t, [SeatCount]bool{false, false, false, true}, canAct(gs))
	assert.Equal(t, 3, gs.TurnSeat())
}

func TestDoubling_EarliestDoublerLeads(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)
	for _, step := range []struct {
		seat int
		c    Choice
	}{
		{2, ChoiceDouble},
		{1, ChoiceDouble},
		{3, ChoiceDouble},
		{0, ChoiceNone},
	} {
		_, err := gs.SubmitChoice(step.seat, step.c)
		require.NoError(t, err)
	}

	// 对方也加倍过，但仍要在第二轮重新作答
	snap := gs.Snapshot()
	assert.Equal(t, StatusDoubling, gs.Status())
	assert.Equal(t, 2, snap.Ballot.Round)
	assert.Equal(t, 2, snap.Ballot.Doubler)
	assert.ElementsMatch(t, []int{1, 3}, gs.PendingSeats())
	assert.Equal(t, ChoiceUnset, snap.Players[1].Choice)
	assert.Equal(t, ChoiceUnset, snap.Players[3].Choice)
	assert.Equal(t, ChoiceDouble, snap.Players[2].Choice)

	_, err := gs.SubmitChoice(1, ChoiceAntiDouble)
	require.NoError(t, err)
	_, err = gs.SubmitChoice(3, ChoiceNone)
	require.NoError(t, err)

	snap = gs.Snapshot()
	assert.Equal(t, 2, snap.Ballot.Doubler)
	assert.Equal(t, 1, snap.Ballot.Counter)
	assert.Equal(t, 3, gs.Multiplier())
	assert.Equal(t, [SeatCount]bool{false, true, true, false}, canAct(gs))
}

func TestDoubling_Rejections(t *testing.T) {
	t.Parallel()

	gs := rigged(t, nil)

	_, err := gs.SubmitChoice(0, ChoiceUnset)
	assert.ErrorIs(t, err, apperrors.ErrInvalidChoice)

	_, err = gs.SubmitChoice(0, Choice(42))
	assert.ErrorIs(t, err, apperrors.ErrInvalidChoice)

	_, err = gs.SubmitChoice(0, ChoiceAntiDouble)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)

	_, err = gs.SubmitChoice(7, ChoiceNone)
	assert.ErrorIs(t, err, apperrors.ErrNotSeated)

	_, err = gs.SubmitChoice(1, ChoiceDouble)
	require.NoError(t, err)
	_, err = gs.SubmitChoice(1, ChoiceNone)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyChosen)

	assert.ElementsMatch(t, []int{0, 2, 3}, gs.PendingSeats())

	for _, s := range []int{0, 2, 3} {
		_, err = gs.SubmitChoice(s, ChoiceNone)
		require.NoError(t, err)
	}

	// 第二轮只问座位 0 和 2
	assert.ElementsMatch(t, []int{0, 2}, gs.PendingSeats())

	_, err = gs.SubmitChoice(1, ChoiceAntiDouble)
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)

	_, err = gs.SubmitChoice(0, ChoiceDouble)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)

	_, err = gs.SubmitChoice(0, ChoiceNone)
	require.NoError(t, err)
	_, err = gs.SubmitChoice(0, ChoiceAntiDouble)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyChosen)

	_, err = gs.SubmitChoice(2, ChoiceNone)
	require.NoError(t, err)

	_, err = gs.SubmitChoice(2, ChoiceNone)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPhase)
}

func TestParseChoice(t *testing.T) {
	t.Parallel()

	c, ok := ParseChoice("antiDouble")
	assert.True(t, ok)
	assert.Equal(t, ChoiceAntiDouble, c)

	_, ok = ParseChoice("unset")
	assert.False(t, ok)

	_, ok = ParseChoice("quadruple")
	assert.False(t, ok)
}
