// internal/breaker/breaker_test.go
package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(3, zap.NewNop())

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.False(t, b.IsOpen())

	// Третий сбой открывает breaker.
	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())

	state := b.State()
	assert.Equal(t, 3, state.ConsecutiveFailures)
	assert.True(t, state.Open)
	assert.True(t, state.HighLoad)
}

func TestBreakerSingleSuccessResets(t *testing.T) {
	b := New(2, zap.NewNop())

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.Equal(t, 2.0, b.TTLMultiplier())

	b.RecordSuccess()

	state := b.State()
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.False(t, state.Open)
	assert.False(t, state.HighLoad)
	assert.Equal(t, 1.0, b.TTLMultiplier())
}

func TestBreakerOpensOnlyOnce(t *testing.T) {
	b := New(2, zap.NewNop())

	b.RecordFailure()
	assert.True(t, b.RecordFailure())
	// Последующие сбои не сообщают о повторном открытии.
	assert.False(t, b.RecordFailure())
	assert.Equal(t, 3, b.State().ConsecutiveFailures)
}

func TestBreakerMinimumThreshold(t *testing.T) {
	b := New(0, zap.NewNop())
	assert.True(t, b.RecordFailure())
}
