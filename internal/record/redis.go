package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/spade-three/internal/game/session"
)

const (
	// Redis key
	recordKeyPrefix = "game:record:"
	recordListKey   = "game:records"
	playerStatsKey  = "player:stats:"
	leaderboardKey  = "leaderboard"

	// 最近对局列表保留条数
	recentLimit = 1000
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// PlayerStats 玩家累计战绩
type PlayerStats struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Games  int64  `json:"games"`
	Wins   int64  `json:"wins"`
	Losses int64  `json:"losses"`
	Score  int64  `json:"score"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Score   int64   `json:"score"`
	Wins    int64   `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// RedisSink 记录写入 Redis，并累计战绩与排行榜
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink 创建 Redis 存储
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

// Save 保存记录；异常终止的对局只保存记录，不计分
func (s *RedisSink) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化对局记录失败: %w", err)
	}
	id := ID(rec)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKeyPrefix+id, data, 0)
	pipe.LPush(ctx, recordListKey, id)
	pipe.LTrim(ctx, recordListKey, 0, recentLimit-1)

	if !rec.Aborted {
		for _, p := range rec.Players {
			key := playerStatsKey + p.UserID
			pipe.HSet(ctx, key, "name", p.Name)
			pipe.HIncrBy(ctx, key, "games", 1)
			if p.Team == rec.WinningTeam {
				pipe.HIncrBy(ctx, key, "wins", 1)
			} else {
				pipe.HIncrBy(ctx, key, "losses", 1)
			}
			pipe.HIncrBy(ctx, key, "score", p.Score)
			pipe.ZIncrBy(ctx, leaderboardKey, float64(p.Score), p.UserID)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入对局记录失败: %w", err)
	}
	return nil
}

// Load 读取一条记录
func (s *RedisSink) Load(ctx context.Context, id string) (session.Record, error) {
	var rec session.Record
	data, err := s.client.Get(ctx, recordKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, ErrNotFound
		}
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("反序列化对局记录失败: %w", err)
	}
	return rec, nil
}

// Recent 最近的记录 ID，新的在前
func (s *RedisSink) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.client.LRange(ctx, recordListKey, 0, int64(limit-1)).Result()
}

// Stats 获取玩家战绩，没有记录时返回零值
func (s *RedisSink) Stats(ctx context.Context, userID string) (PlayerStats, error) {
	vals, err := s.client.HGetAll(ctx, playerStatsKey+userID).Result()
	if err != nil {
		return PlayerStats{}, err
	}
	stats := PlayerStats{UserID: userID, Name: vals["name"]}
	stats.Games, _ = strconv.ParseInt(vals["games"], 10, 64)
	stats.Wins, _ = strconv.ParseInt(vals["wins"], 10, 64)
	stats.Losses, _ = strconv.ParseInt(vals["losses"], 10, 64)
	stats.Score, _ = strconv.ParseInt(vals["score"], 10, 64)
	return stats, nil
}

// Leaderboard 获取排行榜（从高到低）
func (s *RedisSink) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		userID, _ := z.Member.(string)
		stats, err := s.Stats(ctx, userID)
		if err != nil {
			return nil, err
		}

		winRate := 0.0
		if stats.Games > 0 {
			winRate = float64(stats.Wins) / float64(stats.Games) * 100
		}
		entries = append(entries, LeaderboardEntry{
			Rank:    i + 1,
			UserID:  userID,
			Name:    stats.Name,
			Score:   int64(z.Score),
			Wins:    stats.Wins,
			WinRate: winRate,
		})
	}
	return entries, nil
}

// Rank 玩家排名，从 1 开始；未上榜返回 -1
func (s *RedisSink) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := s.client.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil
}
