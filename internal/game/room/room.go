package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/types"
)

// ErrRoomClosed 房间协程已停止
var ErrRoomClosed = errors.New("room closed")

// CommandType 房间命令类型
type CommandType int

const (
	CmdAttach CommandType = iota
	CmdDetach
	CmdPlay
	CmdPass
	CmdChoose
	CmdSurrender
	CmdHint
	CmdChat
	cmdExpire
	cmdClose
)

var commandNames = map[CommandType]string{
	CmdAttach:    "attach",
	CmdDetach:    "detach",
	CmdPlay:      "play",
	CmdPass:      "pass",
	CmdChoose:    "choose",
	CmdSurrender: "surrender",
	CmdHint:      "hint",
	CmdChat:      "chat",
	cmdExpire:    "expire",
	cmdClose:     "close",
}

func (t CommandType) String() string {
	return commandNames[t]
}

// Command 发给房间协程的命令，同一房间的所有命令按到达顺序串行执行
type Command struct {
	Type   CommandType
	Client types.ClientInterface
	Cards  []card.Card
	Choice session.Choice
	Text   string

	gen      uint64 // 超时命令对应的计时器代数
	Response chan error
}

// EndHook 对局结束（含异常终止）后调用，在房间协程中执行，不能阻塞
type EndHook func(rec session.Record)

// Start 大厅交给引擎的开局信息
type Start struct {
	RoomID    string
	BaseStake int64
	Seats     []session.Seat
}

// Room 一桌对局。GameSession 只由 run 协程访问。
type Room struct {
	ID    string
	seats []session.Seat

	gs      *session.GameSession
	members map[string]types.ClientInterface // connID -> client
	// 已收到 game_started 的座位
	announced [session.SeatCount]bool
	log     *log.Logger
	clock   quartz.Clock
	onEnd   EndHook

	turnTimeout time.Duration
	timer       *quartz.Timer
	gen         uint64
	deadline    time.Time

	cmds     chan Command
	done     chan struct{}
	stopOnce sync.Once

	// 以下字段供注册表在其他协程读取
	mu         sync.RWMutex
	closed     bool
	status     session.Status
	lastActive time.Time
	endedAt    time.Time
}

type roomOptions struct {
	clock       quartz.Clock
	logger      *log.Logger
	turnTimeout time.Duration
	rng         *rand.Rand
	onEnd       EndHook
}

// newRoom 创建对局并发牌，返回时协程尚未启动
func newRoom(st Start, opts roomOptions) (*Room, error) {
	gs, err := session.New(st.RoomID, st.Seats, st.BaseStake, opts.clock)
	if err != nil {
		return nil, err
	}
	if err := gs.Deal(opts.rng); err != nil {
		return nil, err
	}

	r := &Room{
		ID:          st.RoomID,
		seats:       append([]session.Seat(nil), st.Seats...),
		gs:          gs,
		members:     make(map[string]types.ClientInterface),
		log:         opts.logger.With("room", st.RoomID),
		clock:       opts.clock,
		onEnd:       opts.onEnd,
		turnTimeout: opts.turnTimeout,
		cmds:        make(chan Command, 256),
		done:        make(chan struct{}),
		status:      gs.Status(),
		lastActive:  opts.clock.Now(),
	}
	r.rearm()
	return r, nil
}

// run 房间主循环
func (r *Room) run() {
	defer r.release()

	for {
		select {
		case cmd := <-r.cmds:
			err := r.handle(cmd)
			if cmd.Response != nil {
				cmd.Response <- err
			}
		case <-r.done:
			r.log.Debug("房间协程已停止")
			return
		}
	}
}

// release 协程退出时解除成员与房间的关联
func (r *Room) release() {
	if r.timer != nil {
		r.timer.Stop()
	}
	for _, c := range r.members {
		if c.GetRoom() == r.ID {
			c.SetRoom("")
		}
	}
	clear(r.members)
}

// Submit 投递命令并等待执行结果
func (r *Room) Submit(ctx context.Context, cmd Command) error {
	if cmd.Response == nil {
		cmd.Response = make(chan error, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.Response:
		return err
	case <-r.done:
		// 命令可能已在关闭前执行完
		select {
		case err := <-cmd.Response:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止房间协程，可重复调用
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// Attach 连接进入房间并收到完整快照
func (r *Room) Attach(ctx context.Context, c types.ClientInterface) error {
	return r.Submit(ctx, Command{Type: CmdAttach, Client: c})
}

// Detach 连接离开房间，座位保留
func (r *Room) Detach(ctx context.Context, c types.ClientInterface) error {
	return r.Submit(ctx, Command{Type: CmdDetach, Client: c})
}

// Play 出牌
func (r *Room) Play(ctx context.Context, c types.ClientInterface, cards []card.Card) error {
	return r.Submit(ctx, Command{Type: CmdPlay, Client: c, Cards: cards})
}

// Pass 不出
func (r *Room) Pass(ctx context.Context, c types.ClientInterface) error {
	return r.Submit(ctx, Command{Type: CmdPass, Client: c})
}

// Choose 提交加倍选择
func (r *Room) Choose(ctx context.Context, c types.ClientInterface, choice session.Choice) error {
	return r.Submit(ctx, Command{Type: CmdChoose, Client: c, Choice: choice})
}

// Surrender 认输
func (r *Room) Surrender(ctx context.Context, c types.ClientInterface) error {
	return r.Submit(ctx, Command{Type: CmdSurrender, Client: c})
}

// Hint 请求出牌提示，结果直接发给请求者
func (r *Room) Hint(ctx context.Context, c types.ClientInterface) error {
	return r.Submit(ctx, Command{Type: CmdHint, Client: c})
}

// Chat 房间聊天
func (r *Room) Chat(ctx context.Context, c types.ClientInterface, text string) error {
	return r.Submit(ctx, Command{Type: CmdChat, Client: c, Text: text})
}

// Seats 开局时的入座信息，不可变
func (r *Room) Seats() []session.Seat {
	return r.seats
}

// HasUser 用户是否在本桌入座
func (r *Room) HasUser(userID string) bool {
	for _, s := range r.seats {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// Status 最近一次命令执行后的对局状态
func (r *Room) Status() session.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Ended 对局是否已结束或终止
func (r *Room) Ended() bool {
	s := r.Status()
	return s == session.StatusFinished || s == session.StatusAborted
}

// IsClosed 房间协程是否已停止
func (r *Room) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// activity 返回最近活跃时间与结束时间
func (r *Room) activity() (lastActive, endedAt time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive, r.endedAt
}

// touch 命令执行后同步对外可见的状态
func (r *Room) touch() {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = r.gs.Status()
	r.lastActive = now
	if r.gs.Done() && r.endedAt.IsZero() {
		r.endedAt = now
	}
}
