package room

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/session"
)

// Options 注册表配置
type Options struct {
	Clock         quartz.Clock
	Logger        *log.Logger
	TurnTimeout   time.Duration // 0 表示不限时
	RoomTimeout   time.Duration // 未结束的房间无任何命令超过该时长后关闭，0 表示不检查
	CleanupDelay  time.Duration // 已结束的房间保留多久再移除
	SweepInterval time.Duration
	Shuffler      func() *rand.Rand
}

// Registry 管理所有房间：roomID -> Room
type Registry struct {
	opts Options
	log  *log.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
	hooks []EndHook
}

// NewRegistry 创建房间注册表
func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Shuffler == nil {
		opts.Shuffler = card.NewShuffler
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Registry{
		opts:  opts,
		log:   opts.Logger.WithPrefix("registry"),
		rooms: make(map[string]*Room),
	}
}

// AddEndHook 注册对局结束回调，需在创建房间前调用
func (rg *Registry) AddEndHook(h EndHook) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.hooks = append(rg.hooks, h)
}

func (rg *Registry) dispatchEnd(rec session.Record) {
	rg.mu.RLock()
	hooks := append([]EndHook(nil), rg.hooks...)
	rg.mu.RUnlock()
	for _, h := range hooks {
		h(rec)
	}
}

// Create 为大厅交来的 4 个玩家开一桌并发牌。
// 同 ID 的房间仍在进行中时拒绝；已结束的旧房间被替换。
func (rg *Registry) Create(ctx context.Context, st Start) (*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rg.mu.Lock()
	old, exists := rg.rooms[st.RoomID]
	if exists && !old.Ended() && !old.IsClosed() {
		rg.mu.Unlock()
		return nil, apperrors.ErrSessionAlreadyExists
	}

	r, err := newRoom(st, roomOptions{
		clock:       rg.opts.Clock,
		logger:      rg.opts.Logger,
		turnTimeout: rg.opts.TurnTimeout,
		rng:         rg.opts.Shuffler(),
		onEnd:       rg.dispatchEnd,
	})
	if err != nil {
		rg.mu.Unlock()
		return nil, err
	}
	rg.rooms[st.RoomID] = r
	rg.mu.Unlock()

	if exists {
		old.Stop()
	}
	go r.run()

	rg.log.Info("🃏 房间已创建", "room", st.RoomID, "base_stake", st.BaseStake, "players", len(st.Seats))
	return r, nil
}

// Get 获取房间
func (rg *Registry) Get(roomID string) (*Room, error) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	r, ok := rg.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return r, nil
}

// RoomOfUser 用户所在的房间，优先返回进行中的对局
func (rg *Registry) RoomOfUser(userID string) (*Room, bool) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()

	var ended *Room
	for _, r := range rg.rooms {
		if !r.HasUser(userID) || r.IsClosed() {
			continue
		}
		if !r.Ended() {
			return r, true
		}
		ended = r
	}
	return ended, ended != nil
}

// Remove 移除房间，可重复调用
func (rg *Registry) Remove(roomID string) {
	rg.remove(roomID, "房间已关闭")
}

func (rg *Registry) remove(roomID, reason string) {
	rg.mu.Lock()
	r, ok := rg.rooms[roomID]
	if ok {
		delete(rg.rooms, roomID)
	}
	rg.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = r.Submit(ctx, Command{Type: cmdClose, Text: reason})
	r.Stop()
}

// Len 房间总数
func (rg *Registry) Len() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return len(rg.rooms)
}

// ActiveCount 进行中的房间数
func (rg *Registry) ActiveCount() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	n := 0
	for _, r := range rg.rooms {
		if !r.Ended() {
			n++
		}
	}
	return n
}

// Sweep 清理已结束的房间与长时间无活动的房间，返回移除数量
func (rg *Registry) Sweep(now time.Time) int {
	type victim struct {
		id     string
		reason string
	}
	var victims []victim

	rg.mu.RLock()
	for id, r := range rg.rooms {
		lastActive, endedAt := r.activity()
		switch {
		case r.IsClosed():
			victims = append(victims, victim{id: id})
		case !endedAt.IsZero():
			if now.Sub(endedAt) >= rg.opts.CleanupDelay {
				victims = append(victims, victim{id: id})
			}
		case rg.opts.RoomTimeout > 0 && now.Sub(lastActive) > rg.opts.RoomTimeout:
			victims = append(victims, victim{id: id, reason: "房间超时已关闭"})
		}
	}
	rg.mu.RUnlock()

	for _, v := range victims {
		rg.remove(v.id, v.reason)
		if v.reason != "" {
			rg.log.Warn("⏰ 房间超时已关闭", "room", v.id)
		} else {
			rg.log.Debug("🧹 房间已清理", "room", v.id)
		}
	}
	return len(victims)
}

// Run 定期清理，直到 ctx 取消
func (rg *Registry) Run(ctx context.Context) error {
	ticker := rg.opts.Clock.NewTicker(rg.opts.SweepInterval, "registry", "sweep")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := rg.Sweep(now); n > 0 {
				rg.log.Info("房间清理完成", "removed", n, "remaining", rg.Len())
			}
		}
	}
}

// Close 停止所有房间
func (rg *Registry) Close() {
	rg.mu.Lock()
	rooms := rg.rooms
	rg.rooms = make(map[string]*Room)
	rg.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}
