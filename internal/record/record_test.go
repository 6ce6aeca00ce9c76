package record

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/rule"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/logger"
)

var started = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

// finishedRecord 队伍 0（座位 0、2）赢下底分 100、倍数 2 的一局
func finishedRecord(roomID string) session.Record {
	return session.Record{
		RoomID:    roomID,
		BaseStake: 100,
		Players: []session.RecordPlayer{
			{PlayerID: "p0", UserID: "u0", Name: "玩家0", Seat: 0, Team: 0, Score: 200},
			{PlayerID: "p1", UserID: "u1", Name: "玩家1", Seat: 1, Team: 1, Score: -200},
			{PlayerID: "p2", UserID: "u2", Name: "玩家2", Seat: 2, Team: 0, Score: 200},
			{PlayerID: "p3", UserID: "u3", Name: "玩家3", Seat: 3, Team: 1, Score: -200},
		},
		History: []session.HistoryEntry{
			{Seat: 0, PlayerID: "p0", Kind: session.KindPlay, Trick: 1, Type: rule.Single,
				Cards: []card.Card{{Suit: card.Spade, Rank: card.Rank3}}, At: started.Add(time.Second)},
			{Seat: 1, PlayerID: "p1", Kind: session.KindPass, Trick: 1, At: started.Add(2 * time.Second)},
		},
		WinningTeam: 0,
		Multiplier:  2,
		Scores:      []int64{200, -200, 200, -200},
		Duration:    5 * time.Minute,
		StartedAt:   started,
		EndedAt:     started.Add(5 * time.Minute),
	}
}

func newTestRedisSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisSink(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestID(t *testing.T) {
	t.Parallel()

	rec := finishedRecord("r1")
	assert.Equal(t, ID(rec), ID(finishedRecord("r1")))
	assert.NotEqual(t, ID(rec), ID(finishedRecord("r2")))
}

func TestRedisSink_SaveAndLoad(t *testing.T) {
	t.Parallel()

	sink, mr := newTestRedisSink(t)
	ctx := context.Background()
	rec := finishedRecord("r1")

	require.NoError(t, sink.Save(ctx, rec))
	assert.True(t, mr.Exists(recordKeyPrefix+ID(rec)))

	loaded, err := sink.Load(ctx, ID(rec))
	require.NoError(t, err)
	assert.Equal(t, rec.RoomID, loaded.RoomID)
	assert.Equal(t, rec.Players, loaded.Players)
	assert.Equal(t, rec.History[0].Type, loaded.History[0].Type)
	assert.Equal(t, rec.Duration, loaded.Duration)

	ids, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{ID(rec)}, ids)

	_, err = sink.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSink_Leaderboard(t *testing.T) {
	t.Parallel()

	sink, _ := newTestRedisSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Save(ctx, finishedRecord("r1")))
	second := finishedRecord("r2")
	second.StartedAt = started.Add(time.Hour)
	require.NoError(t, sink.Save(ctx, second))

	stats, err := sink.Stats(ctx, "u0")
	require.NoError(t, err)
	assert.Equal(t, PlayerStats{UserID: "u0", Name: "玩家0", Games: 2, Wins: 2, Score: 400}, stats)

	stats, err = sink.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Losses)
	assert.Equal(t, int64(-400), stats.Score)

	entries, err := sink.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, int64(400), entries[0].Score)
	assert.InDelta(t, 100.0, entries[0].WinRate, 0.001)
	assert.Equal(t, int64(-400), entries[3].Score)

	rank, err := sink.Rank(ctx, "u1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rank, int64(3))

	rank, err = sink.Rank(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rank)
}

func TestRedisSink_AbortedRecordDoesNotScore(t *testing.T) {
	t.Parallel()

	sink, _ := newTestRedisSink(t)
	ctx := context.Background()

	rec := finishedRecord("r1")
	rec.Aborted = true
	rec.AbortReason = "invariant violated"
	require.NoError(t, sink.Save(ctx, rec))

	stats, err := sink.Stats(ctx, "u0")
	require.NoError(t, err)
	assert.Zero(t, stats.Games)

	entries, err := sink.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLSink_SQLite(t *testing.T) {
	t.Parallel()

	sink, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	ctx := context.Background()

	rec := finishedRecord("r1")
	require.NoError(t, sink.Save(ctx, rec))
	// 重复保存
	require.NoError(t, sink.Save(ctx, rec))

	later := finishedRecord("r2")
	later.StartedAt = started.Add(time.Hour)
	later.EndedAt = later.StartedAt.Add(time.Minute)
	later.Aborted = true
	require.NoError(t, sink.Save(ctx, later))

	history, err := sink.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ID(later), history[0].ID)
	assert.True(t, history[0].Aborted)
	assert.Equal(t, ID(rec), history[1].ID)
	assert.Equal(t, int64(-200), history[1].Score)
	assert.Equal(t, 1, history[1].Team)
	assert.Equal(t, rec.EndedAt.UnixMilli(), history[1].EndedAt.UnixMilli())

	loaded, err := sink.Load(ctx, ID(rec))
	require.NoError(t, err)
	assert.Equal(t, rec.Scores, loaded.Scores)
	assert.Len(t, loaded.History, 2)

	_, err = sink.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLSink_FileAndValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSQLite("  ")
	assert.Error(t, err)
	_, err = NewPostgres("")
	assert.Error(t, err)

	path := t.TempDir() + "/data/records.db"
	sink, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), finishedRecord("r1")))
	require.NoError(t, sink.Close())

	// 重新打开后数据仍在
	sink, err = NewSQLite(path)
	require.NoError(t, err)
	defer sink.Close()
	history, err := sink.History(context.Background(), "u0", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := &SQLSink{postgres: true}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLSink{}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

type countingSink struct {
	calls atomic.Int32
	err   error
}

func (s *countingSink) Save(context.Context, session.Record) error {
	s.calls.Add(1)
	return s.err
}

func TestFanout(t *testing.T) {
	t.Parallel()

	ok1, ok2 := &countingSink{}, &countingSink{}
	failing := &countingSink{err: errors.New("disk full")}

	require.NoError(t, Fanout{ok1, ok2, Noop{}}.Save(context.Background(), finishedRecord("r1")))
	assert.Equal(t, int32(1), ok1.calls.Load())
	assert.Equal(t, int32(1), ok2.calls.Load())

	err := Fanout{ok1, failing}.Save(context.Background(), finishedRecord("r1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, int32(2), ok1.calls.Load())
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	sink, _ := newTestRedisSink(t)
	failing := &countingSink{err: errors.New("unavailable")}
	d := NewDispatcher(Fanout{sink, failing}, logger.Discard(), time.Second)

	d.Dispatch(finishedRecord("r1"))
	d.Dispatch(finishedRecord("r2"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))

	assert.Equal(t, int32(2), failing.calls.Load())
	ids, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
