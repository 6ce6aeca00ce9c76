package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/palemoky/spade-three/internal/game/session"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_records (
    id            TEXT PRIMARY KEY,
    room_id       TEXT NOT NULL,
    base_stake    BIGINT NOT NULL,
    winning_team  INTEGER NOT NULL,
    multiplier    INTEGER NOT NULL,
    surrendered   INTEGER NOT NULL DEFAULT 0,
    aborted       INTEGER NOT NULL DEFAULT 0,
    abort_reason  TEXT NOT NULL DEFAULT '',
    started_at_ms BIGINT NOT NULL,
    ended_at_ms   BIGINT NOT NULL,
    record_json   TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS game_record_players (
    record_id TEXT NOT NULL,
    seat      INTEGER NOT NULL,
    user_id   TEXT NOT NULL,
    name      TEXT NOT NULL,
    team      INTEGER NOT NULL,
    score     BIGINT NOT NULL,
    PRIMARY KEY (record_id, seat)
)`,
	`CREATE INDEX IF NOT EXISTS idx_game_record_players_user ON game_record_players (user_id)`,
}

// Summary 玩家视角的对局摘要
type Summary struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Seat        int       `json:"seat"`
	Team        int       `json:"team"`
	Score       int64     `json:"score"`
	WinningTeam int       `json:"winning_team"`
	Multiplier  int       `json:"multiplier"`
	Aborted     bool      `json:"aborted"`
	EndedAt     time.Time `json:"ended_at"`
}

// SQLSink 记录写入 SQLite 或 Postgres
type SQLSink struct {
	db       *sql.DB
	postgres bool
}

// NewSQLite 打开本地 SQLite 数据库，path 可以是 ":memory:"
func NewSQLite(path string) (*SQLSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// 内存库每个连接都是独立的数据库
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return open(ctx, db, false)
}

// NewPostgres 连接 Postgres
func NewPostgres(dsn string) (*SQLSink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return open(ctx, db, true)
}

func open(ctx context.Context, db *sql.DB, postgres bool) (*SQLSink, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLSink{db: db, postgres: postgres}, nil
}

// Close 关闭数据库
func (s *SQLSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind 把 ? 占位符转换为 Postgres 的 $n
func (s *SQLSink) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save 写入记录及玩家明细，重复保存同一局不会产生新行
func (s *SQLSink) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	id := ID(rec)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO game_records (
    id, room_id, base_stake, winning_team, multiplier, surrendered, aborted, abort_reason,
    started_at_ms, ended_at_ms, record_json
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`), id, rec.RoomID, rec.BaseStake, rec.WinningTeam, rec.Multiplier, boolInt(rec.Surrendered),
		boolInt(rec.Aborted), rec.AbortReason, rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	for _, p := range rec.Players {
		_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO game_record_players (record_id, seat, user_id, name, team, score)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (record_id, seat) DO NOTHING
`), id, p.Seat, p.UserID, p.Name, p.Team, p.Score)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.UserID, err)
		}
	}
	return tx.Commit()
}

// Load 读取完整记录
func (s *SQLSink) Load(ctx context.Context, id string) (session.Record, error) {
	var rec session.Record
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT record_json FROM game_records WHERE id = ?`), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, err
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// History 玩家最近的对局，新的在前
func (s *SQLSink) History(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT r.id, r.room_id, p.seat, p.team, p.score, r.winning_team, r.multiplier, r.aborted, r.ended_at_ms
FROM game_record_players p
JOIN game_records r ON r.id = p.record_id
WHERE p.user_id = ?
ORDER BY r.ended_at_ms DESC, r.id DESC
LIMIT ?
`), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var item Summary
		var aborted int
		var endedAtMs int64
		if err := rows.Scan(&item.ID, &item.RoomID, &item.Seat, &item.Team, &item.Score,
			&item.WinningTeam, &item.Multiplier, &aborted, &endedAtMs); err != nil {
			return nil, err
		}
		item.Aborted = aborted != 0
		item.EndedAt = time.UnixMilli(endedAtMs)
		out = append(out, item)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
