package server

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 5, 10, 2*time.Second)
	ip := "192.168.1.1"

	for i := range 5 {
		assert.True(t, rl.Allow(ip), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow(ip), "6th request should be blocked")
	assert.True(t, rl.IsBanned(ip))

	// 封禁期内一直拒绝
	mock.Advance(time.Second)
	assert.False(t, rl.Allow(ip))

	mock.Advance(time.Second)
	assert.False(t, rl.IsBanned(ip))
	assert.True(t, rl.Allow(ip))
}

func TestRateLimiter_MinuteLimit(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 100, 5, time.Second)
	ip := "10.0.0.1"

	for range 5 {
		assert.True(t, rl.Allow(ip))
		mock.Advance(time.Second)
	}
	assert.False(t, rl.Allow(ip))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 1, 10, time.Second)
	rl.Allow("a")

	mock.Advance(10 * time.Minute)
	rl.Cleanup()
	assert.Len(t, rl.requests, 1)

	mock.Advance(time.Second)
	rl.Cleanup()
	assert.Empty(t, rl.requests)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(quartz.NewReal(), 100, 200, time.Second)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for range 50 {
		wg.Go(func() {
			if rl.Allow("concurrent-test") {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 50, successCount)
}

func TestChatRateLimiter_Cooldown(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	cl := NewChatRateLimiter(mock, 2, 5, 3*time.Second)
	id := "chatter"

	allowed, reason := cl.AllowChat(id)
	assert.True(t, allowed)
	assert.Empty(t, reason)
	allowed, _ = cl.AllowChat(id)
	assert.True(t, allowed)

	allowed, reason = cl.AllowChat(id)
	assert.False(t, allowed)
	assert.Contains(t, reason, "太快")

	allowed, reason = cl.AllowChat(id)
	assert.False(t, allowed)
	assert.Contains(t, reason, "冷却")

	mock.Advance(3 * time.Second)
	allowed, reason = cl.AllowChat(id)
	assert.True(t, allowed)
	assert.Empty(t, reason)
}

func TestChatRateLimiter_MinuteLimit(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	cl := NewChatRateLimiter(mock, 10, 3, 2*time.Second)
	id := "spammer"

	for i := range 3 {
		allowed, _ := cl.AllowChat(id)
		assert.True(t, allowed, "message %d should be allowed", i)
	}
	allowed, reason := cl.AllowChat(id)
	assert.False(t, allowed)
	assert.Contains(t, reason, "休息")

	mock.Advance(time.Minute)
	allowed, _ = cl.AllowChat(id)
	assert.True(t, allowed)

	cl.RemoveClient(id)
	assert.NotContains(t, cl.limits, id)
}

func TestIPFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ip      string
		setup   func(*IPFilter)
		allowed bool
	}{
		{"default allow", "192.168.1.1", nil, true},
		{"blacklisted", "192.168.1.2", func(f *IPFilter) { f.AddToBlacklist("192.168.1.2") }, false},
		{"removed from blacklist", "192.168.1.3", func(f *IPFilter) {
			f.AddToBlacklist("192.168.1.3")
			f.RemoveFromBlacklist("192.168.1.3")
		}, true},
		{"not in whitelist", "192.168.1.4", func(f *IPFilter) { f.AddToWhitelist("10.0.0.1") }, false},
		{"in whitelist", "10.0.0.1", func(f *IPFilter) { f.AddToWhitelist("10.0.0.1") }, true},
		{"blacklist overrides whitelist", "10.0.0.2", func(f *IPFilter) {
			f.AddToWhitelist("10.0.0.2")
			f.AddToBlacklist("10.0.0.2")
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := NewIPFilter()
			if tt.setup != nil {
				tt.setup(f)
			}
			assert.Equal(t, tt.allowed, f.IsAllowed(tt.ip))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expectedIP string
	}{
		{"direct", "192.168.1.1:12345", nil, "192.168.1.1"},
		{"forwarded single", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "203.0.113.1"},
		{"forwarded chain", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"}, "203.0.113.1"},
		{"real ip", "10.0.0.1:12345", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
		{"forwarded wins", "10.0.0.1:12345", map[string]string{
			"X-Forwarded-For": "203.0.113.3",
			"X-Real-IP":       "203.0.113.4",
		}, "203.0.113.3"},
		{"no port", "unix-socket", nil, "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, _ := http.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expectedIP, GetClientIP(req))
		})
	}
}

func TestMessageRateLimiter(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	ml := NewMessageRateLimiter(mock, 5)
	id := "conn-1"

	for i := range 5 {
		allowed, warning := ml.AllowMessage(id)
		assert.True(t, allowed)
		assert.Equal(t, i >= 2, warning, "message %d", i)
	}

	allowed, warning := ml.AllowMessage(id)
	assert.False(t, allowed)
	assert.True(t, warning)
	assert.Equal(t, 1, ml.GetWarningCount(id))

	mock.Advance(time.Second)
	allowed, warning = ml.AllowMessage(id)
	assert.True(t, allowed)
	assert.False(t, warning)

	ml.RemoveClient(id)
	assert.Zero(t, ml.GetWarningCount(id))
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	all := NewOriginChecker([]string{"*"})
	req, _ := http.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	assert.True(t, all.Check(req))

	oc := NewOriginChecker([]string{"https://example.com", "https://App.example.com"})
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://example.com", true},
		{"https://app.example.com", true},
		{"https://evil.com", false},
		{"http://example.com", false},
		{"", true},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/", http.NoBody)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.allowed, oc.Check(req), "origin: %s", tt.origin)
	}
}
