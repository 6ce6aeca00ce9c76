package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
)

var (
	spade3 = card.Card{Suit: card.Spade, Rank: card.Rank3}
	heart5 = card.Card{Suit: card.Heart, Rank: card.Rank5}
	clubK  = card.Card{Suit: card.Club, Rank: card.RankK}
)

func roomState(status string, turn, lastSeat int, last ...card.Card) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgRoomState, protocol.RoomStatePayload{
		RoomID:     "r1",
		Status:     status,
		Multiplier: 1,
		TurnSeat:   turn,
		Table: protocol.TableInfo{
			LastPlayed: convert.CardsToInfos(last),
			LastSeat:   lastSeat,
		},
	})
}

func TestGameState_Apply(t *testing.T) {
	t.Parallel()

	gs := NewGameState()
	assert.Equal(t, -1, gs.Seat)
	assert.False(t, gs.Apply(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{})))

	require.True(t, gs.Apply(codec.MustNewMessage(protocol.MsgJoined, protocol.JoinedPayload{RoomID: "r1", Seat: 2, Team: 0})))
	require.True(t, gs.Apply(roomState("doubling", 0, -1)))
	require.True(t, gs.Apply(codec.MustNewMessage(protocol.MsgYourHand, protocol.YourHandPayload{
		RoomID: "r1", Seat: 2, Cards: convert.CardsToInfos([]card.Card{clubK, heart5}),
	})))
	assert.Equal(t, []card.Card{heart5, clubK}, gs.Hand)
	assert.False(t, gs.MyTurn())

	require.True(t, gs.Apply(codec.MustNewMessage(protocol.MsgDoublingUpdate, protocol.DoublingUpdatePayload{
		RoomID: "r1", Round: 1, Pending: []int{1, 2}, Multiplier: 1,
	})))
	assert.True(t, gs.MustChoose())

	require.True(t, gs.Apply(roomState("playing", 1, 0, spade3)))
	assert.False(t, gs.MustChoose())
	assert.False(t, gs.MyTurn())
	assert.Equal(t, 1, gs.CardCounter.Played(0))

	// 同一手牌重复广播不重复计数
	require.True(t, gs.Apply(roomState("playing", 2, 0, spade3)))
	assert.True(t, gs.MyTurn())
	assert.Equal(t, 1, gs.CardCounter.Played(0))
	assert.Equal(t, 3, gs.CardCounter.Remaining(card.Rank3))

	require.True(t, gs.Apply(codec.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{RoomID: "r1", WinningTeam: 0, Multiplier: 2})))
	assert.True(t, gs.Over)
	assert.True(t, gs.Won())
	assert.Equal(t, 2, gs.Multiplier)

	require.True(t, gs.Apply(codec.MustNewMessage(protocol.MsgLeft, protocol.LeftPayload{RoomID: "r1"})))
	assert.Empty(t, gs.RoomID)
	assert.Equal(t, -1, gs.Seat)
	assert.False(t, gs.Over)
	assert.Equal(t, 4, gs.CardCounter.Remaining(card.Rank3))
}

func TestGameState_BadPayloadIgnored(t *testing.T) {
	t.Parallel()

	gs := NewGameState()
	assert.False(t, gs.Apply(&protocol.Message{Type: protocol.MsgYourHand, Payload: []byte("{")}))
	assert.False(t, gs.Apply(codec.MustNewMessage(protocol.MsgYourHand, protocol.YourHandPayload{
		Cards: []protocol.CardInfo{{Suit: "star", Rank: "3"}},
	})))
	assert.Empty(t, gs.Hand)
}
