// Package auth 把客户端携带的令牌解析为用户身份
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/form3tech-oss/jwt-go"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/spade-three/internal/apperrors"
)

// Identity 认证后的用户
type Identity struct {
	UserID string
	Name   string
}

// Authenticator 令牌认证
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

func unauthorized(reason string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, reason)
}

// --- JWT ---

// JWTAuthenticator HS256 签名的 JWT，sub 为用户 ID，name 为昵称
type JWTAuthenticator struct {
	secret []byte
	issuer string
	clock  quartz.Clock
}

// NewJWTAuthenticator 创建 JWT 认证器，issuer 为空时不校验签发者
func NewJWTAuthenticator(secret, issuer string, clock quartz.Clock) *JWTAuthenticator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, clock: clock}
}

// Issue 签发令牌，供工具与测试使用
func (a *JWTAuthenticator) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("user id is required")
	}
	now := a.clock.Now()
	claims := jwt.MapClaims{
		"sub":  id.UserID,
		"name": id.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate 校验签名与有效期
func (a *JWTAuthenticator) Authenticate(_ context.Context, tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, unauthorized("empty token")
	}

	// 有效期用注入的时钟校验
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, unauthorized("unexpected claims")
	}
	if !claims.VerifyExpiresAt(a.clock.Now().Unix(), true) {
		return Identity{}, unauthorized("token expired")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return Identity{}, unauthorized("unexpected issuer")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, unauthorized("missing subject")
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = GenerateNickname()
	}
	return Identity{UserID: sub, Name: name}, nil
}

// --- Redis 令牌 ---

const tokenKeyPrefix = "auth:token:"

// RedisTokenAuthenticator 不透明令牌，auth:token:<token> 哈希保存 user_id 与 name，过期由 Redis TTL 控制
type RedisTokenAuthenticator struct {
	client *redis.Client
}

// NewRedisTokenAuthenticator 创建 Redis 令牌认证器
func NewRedisTokenAuthenticator(client *redis.Client) *RedisTokenAuthenticator {
	return &RedisTokenAuthenticator{client: client}
}

// Issue 生成并保存令牌
func (a *RedisTokenAuthenticator) Issue(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("user id is required")
	}
	token := generateToken()
	key := tokenKeyPrefix + token

	pipe := a.client.TxPipeline()
	pipe.HSet(ctx, key, "user_id", id.UserID, "name", id.Name)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// Authenticate 查询令牌对应的用户
func (a *RedisTokenAuthenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, unauthorized("empty token")
	}
	vals, err := a.client.HGetAll(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		return Identity{}, fmt.Errorf("load token: %w", err)
	}
	if vals["user_id"] == "" {
		return Identity{}, unauthorized("unknown token")
	}

	name := vals["name"]
	if name == "" {
		name = GenerateNickname()
	}
	return Identity{UserID: vals["user_id"], Name: name}, nil
}

// Revoke 作废令牌
func (a *RedisTokenAuthenticator) Revoke(ctx context.Context, token string) error {
	return a.client.Del(ctx, tokenKeyPrefix+token).Err()
}

// generateToken 生成随机 token
func generateToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
