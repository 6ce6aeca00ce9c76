package card

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck(t *testing.T) {
	t.Parallel()

	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	seen := make(map[Card]bool)
	for _, c := range deck {
		assert.True(t, c.Valid(), "invalid card %v", c)
		assert.False(t, seen[c], "duplicate card %v", c)
		seen[c] = true
	}

	assert.Equal(t, NewDeck(), deck, "deck order is deterministic")
}

func TestShuffle_KeepsMultiset(t *testing.T) {
	t.Parallel()

	for seed := uint64(0); seed < 20; seed++ {
		deck := NewDeck()
		Shuffle(deck, rand.New(rand.NewPCG(seed, seed+1)))
		assert.ElementsMatch(t, NewDeck(), deck)
	}
}

func TestShuffle_UsesSource(t *testing.T) {
	t.Parallel()

	a, b := NewDeck(), NewDeck()
	Shuffle(a, rand.New(rand.NewPCG(1, 2)))
	Shuffle(b, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)

	c := NewDeck()
	Shuffle(c, NewShuffler())
	assert.ElementsMatch(t, a, c)
}

func TestWeights(t *testing.T) {
	t.Parallel()

	assert.Less(t, Rank3.Weight(), RankA.Weight())
	assert.Less(t, RankA.Weight(), Rank2.Weight())
	assert.Less(t, Rank2.Weight(), RankBlackJoker.Weight())
	assert.Less(t, RankBlackJoker.Weight(), RankRedJoker.Weight())

	assert.Greater(t, Spade.Weight(), Heart.Weight())
	assert.Greater(t, Heart.Weight(), Diamond.Weight())
	assert.Greater(t, Diamond.Weight(), Club.Weight())
	assert.Zero(t, Joker.Weight())
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		suit, rank string
		want       Card
		wantErr    bool
	}{
		{suit: "spade", rank: "3", want: Card{Suit: Spade, Rank: Rank3}},
		{suit: "heart", rank: "10", want: Card{Suit: Heart, Rank: Rank10}},
		{suit: "club", rank: "2", want: Card{Suit: Club, Rank: Rank2}},
		{suit: "joker", rank: "RJ", want: Card{Suit: Joker, Rank: RankRedJoker}},
		{suit: "star", rank: "3", wantErr: true},
		{suit: "spade", rank: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.suit+"/"+tt.rank, func(t *testing.T) {
			s, errS := ParseSuit(tt.suit)
			r, errR := ParseRank(tt.rank)
			if tt.wantErr {
				assert.True(t, errS != nil || errR != nil)
				return
			}
			require.NoError(t, errS)
			require.NoError(t, errR)
			assert.Equal(t, tt.want, Card{Suit: s, Rank: r})
		})
	}
}

func TestCard_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, SpadeThree.Valid())
	assert.False(t, Card{Suit: Joker, Rank: Rank3}.Valid())
	assert.False(t, Card{Suit: Spade, Rank: RankRedJoker}.Valid())
	assert.False(t, Card{}.Valid())
}
