package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/spade-three/internal/auth"
	"github.com/palemoky/spade-three/internal/client"
)

var CLI struct {
	URL      string        `short:"u" long:"url" default:"ws://localhost:1780/ws" help:"Server WebSocket URL"`
	Token    []string      `short:"t" long:"token" help:"Auth token, one bot per token"`
	Secret   string        `long:"jwt-secret" env:"AUTH_JWT_SECRET" help:"Issue JWTs locally instead of passing --token"`
	Issuer   string        `long:"issuer" help:"JWT issuer"`
	Users    []string      `long:"user" help:"User IDs to issue tokens for (with --jwt-secret)"`
	Room     string        `short:"r" long:"room" help:"Room to join; empty relies on auto-attach"`
	Timeout  time.Duration `long:"timeout" default:"30m" help:"Give up after this long"`
	LogLevel string        `short:"l" long:"log-level" default:"info" help:"Log level"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Description("自动对局机器人，用于联调与压测"))

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	level, err := log.ParseLevel(CLI.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无效的日志级别: %v\n", err)
		kctx.Exit(1)
	}
	logger.SetLevel(level)

	tokens, err := collectTokens()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		kctx.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, CLI.Timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i, token := range tokens {
		g.Go(func() error {
			return runBot(gctx, logger.With("bot", i), token)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("机器人退出", "err", err)
		os.Exit(1)
	}
}

// collectTokens 直接使用 --token，或用 --jwt-secret 为 --user 签发
func collectTokens() ([]string, error) {
	tokens := append([]string(nil), CLI.Token...)
	if CLI.Secret != "" {
		issuer := auth.NewJWTAuthenticator(CLI.Secret, CLI.Issuer, nil)
		for _, user := range CLI.Users {
			token, err := issuer.Issue(auth.Identity{UserID: user}, CLI.Timeout+time.Hour)
			if err != nil {
				return nil, fmt.Errorf("签发令牌失败 %s: %w", user, err)
			}
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("需要 --token 或 --jwt-secret 加 --user")
	}
	return tokens, nil
}

func runBot(ctx context.Context, logger *log.Logger, token string) error {
	c := client.New(CLI.URL, token, logger)
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}
	defer c.Close()

	if CLI.Room != "" {
		if err := c.JoinRoom(CLI.Room); err != nil {
			return err
		}
	}

	bot := client.NewBot(c, logger)
	_, err := bot.Run(ctx)
	return err
}
