// Package lobby 对接大厅：入座信息保存在 Redis，开局通知通过 Pub/Sub 下发
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/spade-three/internal/game/session"
)

const (
	// Redis key 前缀
	tableKeyPrefix = "lobby:table:"
	userKeyPrefix  = "lobby:user:"

	// 入座信息过期时间，需覆盖一局的最长时长
	tableExpiration = 3 * time.Hour
)

// ErrTableNotFound 桌子不存在或已过期
var ErrTableNotFound = errors.New("table not found")

// Table 大厅组好的一桌
type Table struct {
	RoomID    string         `json:"room_id"`
	BaseStake int64          `json:"base_stake"`
	Seats     []session.Seat `json:"seats"`
	CreatedAt int64          `json:"created_at"`
}

// Validate 校验座位数与用户
func (t Table) Validate() error {
	if t.RoomID == "" {
		return errors.New("room id is required")
	}
	if len(t.Seats) != session.SeatCount {
		return fmt.Errorf("need %d seats, got %d", session.SeatCount, len(t.Seats))
	}
	seen := make(map[string]bool, len(t.Seats))
	for _, s := range t.Seats {
		if s.UserID == "" || seen[s.UserID] {
			return fmt.Errorf("invalid or duplicate user %q", s.UserID)
		}
		seen[s.UserID] = true
	}
	return nil
}

// Directory 入座信息目录
type Directory interface {
	SeatTable(ctx context.Context, t Table) error
	Table(ctx context.Context, roomID string) (Table, error)
	RoomOf(ctx context.Context, userID string) (string, error)
	Release(ctx context.Context, roomID string) error
}

// RedisDirectory 基于 Redis 的目录
type RedisDirectory struct {
	client *redis.Client
}

// NewRedisDirectory 创建目录
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

// SeatTable 保存一桌的入座信息，并记录每个用户所在房间
func (d *RedisDirectory) SeatTable(ctx context.Context, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("序列化入座信息失败: %w", err)
	}

	pipe := d.client.TxPipeline()
	pipe.Set(ctx, tableKeyPrefix+t.RoomID, data, tableExpiration)
	for _, s := range t.Seats {
		pipe.Set(ctx, userKeyPrefix+s.UserID, t.RoomID, tableExpiration)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Table 读取入座信息
func (d *RedisDirectory) Table(ctx context.Context, roomID string) (Table, error) {
	var t Table
	data, err := d.client.Get(ctx, tableKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return t, ErrTableNotFound
		}
		return t, err
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("反序列化入座信息失败: %w", err)
	}
	return t, nil
}

// RoomOf 用户当前所在房间，没有时返回空串
func (d *RedisDirectory) RoomOf(ctx context.Context, userID string) (string, error) {
	roomID, err := d.client.Get(ctx, userKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return roomID, err
}

// Release 对局结束后释放座位。用户已经进入其他房间时不清除其映射。
func (d *RedisDirectory) Release(ctx context.Context, roomID string) error {
	t, err := d.Table(ctx, roomID)
	if errors.Is(err, ErrTableNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, s := range t.Seats {
		current, err := d.RoomOf(ctx, s.UserID)
		if err != nil {
			return err
		}
		if current == roomID {
			if err := d.client.Del(ctx, userKeyPrefix+s.UserID).Err(); err != nil {
				return err
			}
		}
	}
	return d.client.Del(ctx, tableKeyPrefix+roomID).Err()
}
