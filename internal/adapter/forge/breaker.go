package forge

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerManager hands out one circuit breaker per installation, so a
// single misbehaving tenant's forge outage cannot trip requests for
// every other tenant sharing the process.
type BreakerManager struct {
	mu       sync.Mutex
	breakers map[int64]*gobreaker.CircuitBreaker
	onTrip   func(installationID int64)
}

// NewBreakerManager builds a manager. onTrip, if non-nil, is invoked
// whenever an installation's breaker transitions to the open state,
// for incrementing the circuit-breaker-trip metric.
func NewBreakerManager(onTrip func(installationID int64)) *BreakerManager {
	return &BreakerManager{
		breakers: make(map[int64]*gobreaker.CircuitBreaker),
		onTrip:   onTrip,
	}
}

func (m *BreakerManager) breaker(installationID int64) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[installationID]; ok {
		return b
	}

	name := fmt.Sprintf("installation-%d", installationID)
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen && m.onTrip != nil {
				m.onTrip(installationID)
			}
		},
	})
	m.breakers[installationID] = b
	return b
}

// Execute runs fn through the breaker scoped to installationID. A
// tripped breaker fails fast with gobreaker.ErrOpenState instead of
// reaching the network.
func (m *BreakerManager) Execute(installationID int64, fn func() (any, error)) (any, error) {
	return m.breaker(installationID).Execute(fn)
}
