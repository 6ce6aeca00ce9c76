package codec

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/palemoky/spade-three/internal/protocol"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(protocol.MsgPong, protocol.PongPayload{ClientTimestamp: 1, ServerTimestamp: 2})
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPong, msg.Type)
	assert.JSONEq(t, `{"client_timestamp":1,"server_timestamp":2}`, string(msg.Payload))

	msg, err = NewMessage(protocol.MsgAck, nil)
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)

	_, err = NewMessage(protocol.MsgAck, make(chan int))
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewMessage(protocol.MsgAck, make(chan int)) })
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgPlayCards, protocol.PlayCardsPayload{
		RoomID: "r1",
		Cards:  []protocol.CardInfo{{Suit: "spade", Rank: "3"}},
	})
	data, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPlayCards, got.Type)

	p, err := ParsePayload[protocol.PlayCardsPayload](got)
	require.NoError(t, err)
	assert.Equal(t, "r1", p.RoomID)
	assert.Equal(t, []protocol.CardInfo{{Suit: "spade", Rank: "3"}}, p.Cards)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "{", `{"payload":{}}`, `[1,2]`} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestParsePayload_Empty(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload[protocol.RoomPayload](&protocol.Message{Type: protocol.MsgPassTurn})
	require.NoError(t, err)
	assert.Empty(t, p.RoomID)

	_, err = ParsePayload[protocol.RoomPayload](&protocol.Message{Payload: []byte(`{"room_id":1}`)})
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	msg := NewErrorMessage(protocol.ErrCodeInvalidMsg)
	assert.Equal(t, protocol.MsgError, msg.Type)
	p, err := ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, p.Code)
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg], p.Message)

	msg = NewRejectMessage(protocol.MsgPlayCards, protocol.ErrCodePlayTooLow)
	assert.Equal(t, protocol.MsgPlayRejected, msg.Type)
	r, err := ParsePayload[protocol.PlayRejectedPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPlayCards, r.Action)
	assert.Equal(t, "PlayTooLow", r.Reason)
}

func TestBinary_RoundTrip(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgDoublingChoice, protocol.DoublingChoicePayload{RoomID: "r1", Choice: "double"})
	data, err := EncodeBinary(msg)
	require.NoError(t, err)

	got, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.JSONEq(t, string(msg.Payload), string(got.Payload))

	noPayload, err := EncodeBinary(&protocol.Message{Type: protocol.MsgPassTurn})
	require.NoError(t, err)
	got, err = DecodeBinary(noPayload)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPassTurn, got.Type)
	assert.Empty(t, got.Payload)
}

func TestBinary_SkipsUnknownFields(t *testing.T) {
	t.Parallel()

	b := protowire.AppendTag(nil, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)
	b = protowire.AppendTag(b, fieldType, protowire.BytesType)
	b = protowire.AppendString(b, string(protocol.MsgPing))

	got, err := DecodeBinary(b)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPing, got.Type)
}

func TestBinary_Invalid(t *testing.T) {
	t.Parallel()

	_, err := EncodeBinary(&protocol.Message{})
	assert.Error(t, err)

	_, err = DecodeBinary(nil)
	assert.Error(t, err)

	truncated := protowire.AppendTag(nil, fieldType, protowire.BytesType)
	truncated = protowire.AppendVarint(truncated, 10)
	_, err = DecodeBinary(truncated)
	assert.Error(t, err)
}

func TestPools(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	msg.Type = "test"
	msg.Payload = []byte("data")
	PutMessage(msg)
	assert.Empty(t, msg.Type)
	assert.Nil(t, msg.Payload)

	buf := GetBuffer()
	buf.WriteString("test data")
	PutBuffer(buf)
	assert.Equal(t, 0, buf.Len())

	assert.NotPanics(t, func() {
		PutMessage(nil)
		PutBuffer(nil)
	})

	// 超大缓冲区归还时也会被清空
	big := bytes.NewBuffer(make([]byte, 0, maxPooledBuffer+1))
	big.WriteString("oversized")
	PutBuffer(big)
	assert.Equal(t, 0, big.Len())

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			m := GetMessage()
			m.Type = "concurrent"
			PutMessage(m)
			b := GetBuffer()
			b.WriteString("concurrent")
			PutBuffer(b)
		})
	}
	wg.Wait()
}

func BenchmarkEncode(b *testing.B) {
	msg := MustNewMessage(protocol.MsgRoomState, protocol.RoomStatePayload{RoomID: "bench", Seats: make([]protocol.SeatInfo, 4)})
	b.Run("json", func(b *testing.B) {
		for b.Loop() {
			_, _ = Encode(msg)
		}
	})
	b.Run("binary", func(b *testing.B) {
		for b.Loop() {
			_, _ = EncodeBinary(msg)
		}
	})
}
