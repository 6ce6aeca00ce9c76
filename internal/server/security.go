package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// RateLimiter 按 IP 限制建立连接的频率
type RateLimiter struct {
	clock    quartz.Clock
	requests map[string]*clientRate
	mu       sync.Mutex

	maxRequestsPerSecond int
	maxRequestsPerMinute int
	banDuration          time.Duration
}

// clientRate 客户端速率记录
type clientRate struct {
	secondCount int
	minuteCount int
	lastSecond  time.Time
	lastMinute  time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(clock quartz.Clock, maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		clock:                clock,
		requests:             make(map[string]*clientRate),
		maxRequestsPerSecond: maxPerSecond,
		maxRequestsPerMinute: maxPerMinute,
		banDuration:          banDuration,
	}
}

// Allow 检查是否允许请求，超限后封禁 banDuration
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	rate, exists := rl.requests[ip]
	if !exists {
		rl.requests[ip] = &clientRate{secondCount: 1, minuteCount: 1, lastSecond: now, lastMinute: now}
		return true
	}

	if now.Before(rate.bannedUntil) {
		return false
	}
	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	rate.secondCount++
	rate.minuteCount++
	if rate.secondCount > rl.maxRequestsPerSecond || rate.minuteCount > rl.maxRequestsPerMinute {
		rate.bannedUntil = now.Add(rl.banDuration)
		return false
	}
	return true
}

// IsBanned 检查 IP 是否被封禁
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rate, exists := rl.requests[ip]
	return exists && rl.clock.Now().Before(rate.bannedUntil)
}

// Cleanup 清理 10 分钟无请求且未封禁的记录
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.clock.Now()
	for ip, rate := range rl.requests {
		if now.Sub(rate.lastMinute) > 10*time.Minute && now.After(rate.bannedUntil) {
			delete(rl.requests, ip)
		}
	}
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewOriginChecker 创建来源验证器，"*" 表示允许所有来源
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowedOrigins: make(map[string]bool)}
	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowedOrigins[strings.ToLower(origin)] = true
	}
	return oc
}

// Check 检查来源是否允许。没有 Origin 头的请求来自非浏览器客户端，放行。
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return oc.allowedOrigins[strings.ToLower(origin)]
}

// --- IP 白名单/黑名单 ---

// IPFilter IP 过滤器
type IPFilter struct {
	whitelist map[string]bool
	blacklist map[string]bool
	mu        sync.RWMutex
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter() *IPFilter {
	return &IPFilter{
		whitelist: make(map[string]bool),
		blacklist: make(map[string]bool),
	}
}

func (f *IPFilter) AddToWhitelist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whitelist[ip] = true
}

func (f *IPFilter) AddToBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[ip] = true
}

func (f *IPFilter) RemoveFromBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blacklist, ip)
}

// IsAllowed 有白名单时只放行白名单，黑名单优先
func (f *IPFilter) IsAllowed(ip string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.blacklist[ip] {
		return false
	}
	return len(f.whitelist) == 0 || f.whitelist[ip]
}

// GetClientIP 获取客户端真实 IP
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// --- 消息速率限制 ---

// MessageRateLimiter 已建立连接的消息速率限制
type MessageRateLimiter struct {
	clock  quartz.Clock
	limits map[string]*messageRate
	mu     sync.Mutex

	maxMessagesPerSecond int
	warningThreshold     int
}

type messageRate struct {
	count     int
	lastReset time.Time
	warnings  int
}

// NewMessageRateLimiter 创建消息速率限制器，超过一半额度时开始警告
func NewMessageRateLimiter(clock quartz.Clock, maxPerSecond int) *MessageRateLimiter {
	return &MessageRateLimiter{
		clock:                clock,
		limits:               make(map[string]*messageRate),
		maxMessagesPerSecond: maxPerSecond,
		warningThreshold:     maxPerSecond / 2,
	}
}

// AllowMessage 检查是否允许发送消息
func (ml *MessageRateLimiter) AllowMessage(connID string) (allowed bool, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.clock.Now()
	rate, exists := ml.limits[connID]
	if !exists {
		ml.limits[connID] = &messageRate{count: 1, lastReset: now}
		return true, false
	}
	if now.Sub(rate.lastReset) >= time.Second {
		rate.count = 1
		rate.lastReset = now
		return true, false
	}

	rate.count++
	if rate.count > ml.maxMessagesPerSecond {
		rate.warnings++
		return false, true
	}
	return true, rate.count > ml.warningThreshold
}

// GetWarningCount 获取超限次数
func (ml *MessageRateLimiter) GetWarningCount(connID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if rate, ok := ml.limits[connID]; ok {
		return rate.warnings
	}
	return 0
}

// RemoveClient 移除连接记录
func (ml *MessageRateLimiter) RemoveClient(connID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limits, connID)
}

// --- 聊天限流 ---

// ChatRateLimiter 聊天限流，超过每秒额度进入冷却
type ChatRateLimiter struct {
	clock  quartz.Clock
	limits map[string]*chatRate
	mu     sync.Mutex

	maxPerSecond int
	maxPerMinute int
	cooldown     time.Duration
}

type chatRate struct {
	secondCount   int
	minuteCount   int
	lastSecond    time.Time
	lastMinute    time.Time
	cooldownUntil time.Time
}

// NewChatRateLimiter 创建聊天限流器
func NewChatRateLimiter(clock quartz.Clock, maxPerSecond, maxPerMinute int, cooldown time.Duration) *ChatRateLimiter {
	return &ChatRateLimiter{
		clock:        clock,
		limits:       make(map[string]*chatRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		cooldown:     cooldown,
	}
}

// AllowChat 实现 types.ChatLimiter
func (cl *ChatRateLimiter) AllowChat(connID string) (bool, string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.clock.Now()
	rate, ok := cl.limits[connID]
	if !ok {
		cl.limits[connID] = &chatRate{secondCount: 1, minuteCount: 1, lastSecond: now, lastMinute: now}
		return true, ""
	}

	if now.Before(rate.cooldownUntil) {
		return false, "冷却中，先看看牌再聊吧"
	}
	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	if rate.minuteCount >= cl.maxPerMinute {
		return false, "聊得太多了，休息一下吧"
	}
	if rate.secondCount >= cl.maxPerSecond {
		rate.cooldownUntil = now.Add(cl.cooldown)
		return false, "说话太快了，请稍后再发"
	}

	rate.secondCount++
	rate.minuteCount++
	return true, ""
}

// RemoveClient 实现 types.ChatLimiter
func (cl *ChatRateLimiter) RemoveClient(connID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.limits, connID)
}
