package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEgressEndpoint_Score(t *testing.T) {
	e := &EgressEndpoint{Address: "http://p1:8080"}
	assert.Equal(t, 0.0, e.Score())

	e.SuccessCount = 4
	e.FailureCount = 1
	assert.Equal(t, 2.0, e.Score())
}

func TestEgressEndpoint_InCooldown(t *testing.T) {
	now := time.Now()
	e := &EgressEndpoint{Address: "http://p1:8080"}
	assert.False(t, e.InCooldown(now, 10*time.Minute))

	e.LastFailureAt = now.Add(-time.Minute)
	assert.True(t, e.InCooldown(now, 10*time.Minute))

	e.LastFailureAt = now.Add(-11 * time.Minute)
	assert.False(t, e.InCooldown(now, 10*time.Minute))
}

func TestEgressEndpoint_ProxyURL(t *testing.T) {
	direct := &EgressEndpoint{Address: DirectAddress}
	assert.True(t, direct.IsDirect())
	assert.Empty(t, direct.ProxyURL())

	proxy := &EgressEndpoint{Address: "socks5://10.0.0.1:1080"}
	assert.False(t, proxy.IsDirect())
	assert.Equal(t, "socks5://10.0.0.1:1080", proxy.ProxyURL())
}
