package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/config"
	"github.com/palemoky/spade-three/internal/game/room"
	"github.com/palemoky/spade-three/internal/lobby"
	"github.com/palemoky/spade-three/internal/logger"
	"github.com/palemoky/spade-three/internal/record"
	"github.com/palemoky/spade-three/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"configs/config.yaml" help:"Path to YAML or HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Description("黑桃三 实时对局服务器"))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		kctx.Exit(1)
	}
	if err := applyOverrides(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		kctx.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
		kctx.Exit(1)
	}

	lg, closer, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	if err := run(cfg, lg); err != nil {
		lg.Error("服务器异常退出", "err", err)
		_ = closer.Close()
		os.Exit(1)
	}
}

// applyOverrides 命令行参数覆盖配置文件
func applyOverrides(cfg *config.Config) error {
	if CLI.Addr != "" {
		host, port, err := net.SplitHostPort(CLI.Addr)
		if err != nil {
			return fmt.Errorf("--addr: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("--addr port: %w", err)
		}
		if host != "" {
			cfg.Server.Host = host
		}
		cfg.Server.Port = p
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	return nil
}

func run(cfg *config.Config, lg *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis 连接失败: %w", err)
	}

	clock := quartz.NewReal()

	var authenticator auth.Authenticator
	switch cfg.Auth.Mode {
	case config.AuthModeRedis:
		authenticator = auth.NewRedisTokenAuthenticator(rdb)
	default:
		authenticator = auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock)
	}

	// 对局记录
	var (
		sinks       record.Fanout
		leaderboard *record.RedisSink
		history     *record.SQLSink
	)
	if cfg.Record.Redis {
		leaderboard = record.NewRedisSink(rdb)
		sinks = append(sinks, leaderboard)
	}
	if cfg.Record.SQLitePath != "" {
		db, err := record.NewSQLite(cfg.Record.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		sinks = append(sinks, db)
		history = db
	}
	if cfg.Record.PostgresDSN != "" {
		db, err := record.NewPostgres(cfg.Record.PostgresDSN)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		sinks = append(sinks, db)
		if history == nil {
			history = db
		}
	}
	var sink record.Sink = record.Noop{}
	if len(sinks) > 0 {
		sink = sinks
	}
	dispatcher := record.NewDispatcher(sink, lg, cfg.Record.TimeoutDuration())

	registry := room.NewRegistry(room.Options{
		Clock:        clock,
		Logger:       lg,
		TurnTimeout:  cfg.Game.TurnTimeoutDuration(),
		RoomTimeout:  cfg.Game.RoomTimeoutDuration(),
		CleanupDelay: cfg.Game.RoomCleanupDelayDuration(),
	})
	defer registry.Close()

	starter := lobby.NewStarter(lobby.NewRedisDirectory(rdb), rdb, registry, lg)
	registry.AddEndHook(dispatcher.Dispatch)
	registry.AddEndHook(starter.Release)

	srv, err := server.New(server.Deps{
		Config:      cfg,
		Logger:      lg,
		Clock:       clock,
		Registry:    registry,
		Auth:        authenticator,
		Leaderboard: leaderboard,
		History:     history,
	})
	if err != nil {
		return err
	}
	starter.SetAccepting(func() bool { return !srv.IsMaintenanceMode() })

	lg.Info("🎮 服务器启动中",
		"addr", cfg.Server.Addr(),
		"auth", cfg.Auth.Mode,
		"record_sinks", len(sinks),
		"turn_timeout", cfg.Game.TurnTimeoutDuration())

	// 收到信号后先等对局结束，再停止其余组件
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return registry.Run(gctx) })
	g.Go(func() error { return starter.Run(gctx) })
	g.Go(func() error {
		select {
		case <-ctx.Done():
			lg.Info("正在关闭服务器...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Game.ShutdownTimeoutDuration())
			defer cancel()
			srv.GracefulShutdown(shutdownCtx)
		case <-gctx.Done():
		}
		cancelRun()
		return nil
	})

	err = g.Wait()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), cfg.Record.TimeoutDuration())
	defer cancelWait()
	if werr := dispatcher.Wait(waitCtx); werr != nil {
		lg.Warn("等待对局记录写入超时", "err", werr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("服务器已关闭")
	return nil
}
