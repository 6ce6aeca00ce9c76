package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/spade-three/internal/game/room"
	"github.com/palemoky/spade-three/internal/game/session"
)

// GameStartChannel 大厅发布开局通知的频道，消息内容为房间号
const GameStartChannel = "lobby:game_start"

// ErrNotAccepting 服务器维护中，不再开新局
var ErrNotAccepting = errors.New("lobby: not accepting new games")

// Starter 收到开局通知后创建对局
type Starter struct {
	dir      Directory
	client   *redis.Client
	registry *room.Registry
	log      *log.Logger
	ready    chan struct{}

	accepting func() bool
}

// NewStarter 创建开局器
func NewStarter(dir Directory, client *redis.Client, registry *room.Registry, logger *log.Logger) *Starter {
	return &Starter{
		dir:      dir,
		client:   client,
		registry: registry,
		log:      logger.WithPrefix("lobby"),
		ready:    make(chan struct{}),
	}
}

// Ready 订阅生效后关闭
func (s *Starter) Ready() <-chan struct{} {
	return s.ready
}

// SetAccepting 设置开局前的检查，返回 false 时拒绝开局。需在 Run 之前调用。
func (s *Starter) SetAccepting(fn func() bool) {
	s.accepting = fn
}

// Run 订阅开局通知直到 ctx 结束
func (s *Starter) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, GameStartChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", GameStartChannel, err)
	}
	close(s.ready)
	s.log.Info("📡 已订阅开局通知", "channel", GameStartChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := s.Start(ctx, msg.Payload); err != nil {
				s.log.Warn("开局失败", "room", msg.Payload, "err", err)
			}
		}
	}
}

// Start 读取入座信息并创建对局
func (s *Starter) Start(ctx context.Context, roomID string) (*room.Room, error) {
	if s.accepting != nil && !s.accepting() {
		return nil, ErrNotAccepting
	}
	t, err := s.dir.Table(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.registry.Create(ctx, room.Start{
		RoomID:    t.RoomID,
		BaseStake: t.BaseStake,
		Seats:     t.Seats,
	})
}

// Announce 发布开局通知
func (s *Starter) Announce(ctx context.Context, roomID string) error {
	return s.client.Publish(ctx, GameStartChannel, roomID).Err()
}

// Release 对局结束回调，释放大厅中的座位
func (s *Starter) Release(rec session.Record) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.dir.Release(ctx, rec.RoomID); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("释放座位失败", "room", rec.RoomID, "err", err)
		}
	}()
}
