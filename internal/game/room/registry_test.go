package room

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/testutil"
)

func newTestRegistry(t *testing.T, clock quartz.Clock) *Registry {
	t.Helper()
	rg := NewRegistry(Options{
		Clock:         clock,
		Logger:        testLogger(),
		RoomTimeout:   10 * time.Minute,
		CleanupDelay:  time.Minute,
		SweepInterval: time.Minute,
		Shuffler:      func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
	})
	t.Cleanup(rg.Close)
	return rg
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Parallel()

	rg := newTestRegistry(t, quartz.NewMock(t))
	ctx := context.Background()

	r, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	assert.Equal(t, session.StatusDoubling, r.Status())

	got, err := rg.Get("room-a")
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = rg.Create(ctx, testStart("room-a"))
	assert.ErrorIs(t, err, apperrors.ErrSessionAlreadyExists)

	_, err = rg.Get("missing")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	byUser, ok := rg.RoomOfUser("u2")
	require.True(t, ok)
	assert.Same(t, r, byUser)
	_, ok = rg.RoomOfUser("stranger")
	assert.False(t, ok)

	bad := testStart("room-b")
	bad.Seats = bad.Seats[:3]
	_, err = rg.Create(ctx, bad)
	assert.Error(t, err)

	assert.Equal(t, 1, rg.Len())
	assert.Equal(t, 1, rg.ActiveCount())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = rg.Create(canceled, testStart("room-c"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_EndHookAndCleanup(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	rg := newTestRegistry(t, mock)
	ended := make(chan session.Record, 1)
	rg.AddEndHook(func(rec session.Record) { ended <- rec })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	c := testutil.NewSimpleClient("u0", "玩家0")
	require.NoError(t, r.Attach(ctx, c))
	require.NoError(t, r.Surrender(ctx, c))

	select {
	case rec := <-ended:
		assert.Equal(t, "room-a", rec.RoomID)
		assert.Equal(t, 1, rec.WinningTeam)
	default:
		t.Fatal("end hook not called")
	}
	assert.Equal(t, 0, rg.ActiveCount())
	assert.Equal(t, 1, rg.Len())

	// 结算后保留一段时间供重连查看
	assert.Zero(t, rg.Sweep(mock.Now()))
	assert.Equal(t, 1, rg.Sweep(mock.Now().Add(time.Minute)))
	assert.Zero(t, rg.Len())
	_, err = rg.Get("room-a")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.Eventually(t, func() bool { return c.GetRoom() == "" }, time.Second, 5*time.Millisecond)
	assert.Nil(t, c.Last(protocol.MsgError))

	rg.Remove("room-a")
}

func TestRegistry_ReplacesEndedRoom(t *testing.T) {
	t.Parallel()

	rg := newTestRegistry(t, quartz.NewMock(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	old, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	require.NoError(t, old.Surrender(ctx, testutil.NewSimpleClient("u3", "玩家3")))

	fresh, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.True(t, old.IsClosed())

	byUser, ok := rg.RoomOfUser("u0")
	require.True(t, ok)
	assert.Same(t, fresh, byUser)
}

func TestRegistry_SweepClosesIdleRooms(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	rg := newTestRegistry(t, mock)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	c := testutil.NewSimpleClient("u1", "玩家1")
	require.NoError(t, r.Attach(ctx, c))

	assert.Zero(t, rg.Sweep(mock.Now().Add(5*time.Minute)))
	assert.Equal(t, 1, rg.Sweep(mock.Now().Add(11*time.Minute)))

	msg := c.Last(protocol.MsgError)
	require.NotNil(t, msg)
	p := payload[protocol.ErrorPayload](t, msg)
	assert.Equal(t, "房间超时已关闭", p.Message)

	require.Eventually(t, func() bool { return c.GetRoom() == "" }, time.Second, 5*time.Millisecond)
	assert.True(t, r.IsClosed())
	assert.Zero(t, rg.Len())
}

func TestRegistry_RunSweepsPeriodically(t *testing.T) {
	t.Parallel()

	rg := NewRegistry(Options{
		Logger:        testLogger(),
		SweepInterval: 10 * time.Millisecond,
	})
	t.Cleanup(rg.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := rg.Create(ctx, testStart("room-a"))
	require.NoError(t, err)
	require.NoError(t, r.Surrender(ctx, testutil.NewSimpleClient("u0", "玩家0")))

	done := make(chan error, 1)
	go func() { done <- rg.Run(ctx) }()

	require.Eventually(t, func() bool { return rg.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRegistry_CloseStopsRooms(t *testing.T) {
	t.Parallel()

	rg := newTestRegistry(t, quartz.NewMock(t))
	r, err := rg.Create(context.Background(), testStart("room-a"))
	require.NoError(t, err)

	rg.Close()
	assert.True(t, r.IsClosed())
	assert.Zero(t, rg.Len())
}
