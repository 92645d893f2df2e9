package server

import (
	"net/http/httptest"
	"testing"
	"time"

	apperrors "careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestLimiterManager(t *testing.T) {
	m := NewRateLimiter(60, time.Minute, 2, apperrors.NewDiscardLogger())
	defer m.Close()

	assert.True(t, m.Allow("ip:1"))
	assert.True(t, m.Allow("ip:1"))
	assert.False(t, m.Allow("ip:1"))
	assert.True(t, m.Allow("ip:2"))

	stats := m.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.Equal(t, 2, stats["burst_capacity"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 0.001)

	m.mu.Lock()
	m.clients["ip:2"].seen = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()
	m.cleanup(time.Minute)
	assert.Equal(t, 1, m.GetStats()["active_limiters"])

	m.Close()
}

func TestRetryAfter(t *testing.T) {
	slow := NewRateLimiter(6, time.Minute, 1, nil)
	defer slow.Close()
	assert.Equal(t, 10, slow.retryAfter())

	fast := NewRateLimiter(120, time.Minute, 1, nil)
	defer fast.Close()
	assert.Equal(t, 1, fast.retryAfter())
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{name: "api key header", headers: map[string]string{"X-API-Key": "k1"}, byAPIKey: true, byIP: true, want: "api:k1"},
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer k2"}, byAPIKey: true, want: "api:k2"},
		{name: "falls back to ip", byAPIKey: true, byIP: true, want: "ip:192.0.2.1"},
		{name: "key ignored when not keyed", headers: map[string]string{"X-API-Key": "k1"}, byIP: true, want: "ip:192.0.2.1"},
		{name: "nothing to key on", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(req, tt.byAPIKey, tt.byIP))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", want: "192.0.2.1"},
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7, 10.0.0.1"}, want: "198.51.100.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.8"}, want: "198.51.100.8"},
		{name: "invalid real ip", headers: map[string]string{"X-Real-IP": "nope"}, want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
