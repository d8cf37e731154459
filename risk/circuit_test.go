package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(0.01, 0.02)
	now := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trip, _ := cb.Observe(100, now.Add(time.Duration(i)*10*time.Second))
		assert.False(t, trip)
	}
	assert.NoError(t, cb.PreOrder("NIFTY", 1))

	// 1m 内上涨 2%
	trip, span := cb.Observe(102, now.Add(50*time.Second))
	assert.True(t, trip)
	assert.Equal(t, "1m", span)
	assert.ErrorIs(t, cb.PreOrder("NIFTY", 1), ErrCircuitOpen)
	assert.ErrorIs(t, cb.PreOrder("NIFTY", -1), ErrCircuitOpen)
}

func TestCircuitBreakerFiveMinuteAndRecovery(t *testing.T) {
	cb := NewCircuitBreaker(0.01, 0.02)
	now := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	prices := []float64{100, 100.8, 101.6, 102.4}
	var trip bool
	var span string
	for i, p := range prices {
		trip, span = cb.Observe(p, now.Add(time.Duration(i)*time.Minute))
	}
	assert.True(t, trip)
	assert.Equal(t, "5m", span)

	// 6 分钟后窗口只剩平稳价格
	cb.Observe(102.4, now.Add(9*time.Minute))
	trip, _ = cb.Observe(102.4, now.Add(10*time.Minute))
	assert.False(t, trip)
	assert.NoError(t, cb.PreOrder("NIFTY", 1))
}
