// internal/breaker/breaker.go
package breaker

import (
	"sync"

	"go.uber.org/zap"
)

// Breaker считает подряд идущие сбои внешних вызовов. После threshold
// сбоев он открывается и переводит детектор в режим высокой нагрузки:
// TTL кэша удваивается, медленные endpoint'ы пропускаются. Любой
// полностью успешный fetch закрывает breaker и снимает режим.
type Breaker struct {
	mu sync.Mutex

	threshold           int
	consecutiveFailures int
	open                bool
	highLoad            bool

	logger *zap.Logger
}

// Snapshot — состояние breaker'а для статистики.
type Snapshot struct {
	ConsecutiveFailures int  `json:"consecutiveFailures"`
	Open                bool `json:"open"`
	HighLoad            bool `json:"highLoad"`
}

func New(threshold int, logger *zap.Logger) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		logger:    logger.Named("circuit-breaker"),
	}
}

// RecordFailure регистрирует сбой. Возвращает true, если breaker
// открылся именно этим вызовом.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.open || b.consecutiveFailures < b.threshold {
		return false
	}

	b.open = true
	b.highLoad = true
	b.logger.Warn("circuit breaker opened, entering high load mode",
		zap.Int("consecutive_failures", b.consecutiveFailures),
		zap.Int("threshold", b.threshold))
	return true
}

// RecordSuccess сбрасывает счетчик и закрывает breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasOpen := b.open
	b.consecutiveFailures = 0
	b.open = false
	b.highLoad = false

	if wasOpen {
		b.logger.Info("circuit breaker closed after successful fetch")
	}
}

// IsOpen сообщает, открыт ли breaker.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// TTLMultiplier возвращает множитель TTL кэша: 2 в режиме высокой
// нагрузки, иначе 1.
func (b *Breaker) TTLMultiplier() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.highLoad {
		return 2
	}
	return 1
}

// State возвращает снимок состояния.
func (b *Breaker) State() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		ConsecutiveFailures: b.consecutiveFailures,
		Open:                b.open,
		HighLoad:            b.highLoad,
	}
}
