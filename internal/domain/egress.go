package domain

import "time"

// DirectAddress is the pseudo egress endpoint meaning "no proxy"
const DirectAddress = "direct"

// EgressEndpoint tracks the outcome statistics of one network egress path
type EgressEndpoint struct {
	Address       string    `json:"address" gorm:"primaryKey"`
	SuccessCount  int64     `json:"success_count"`
	FailureCount  int64     `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Score is the success ratio successCount / (failureCount + 1)
func (e *EgressEndpoint) Score() float64 {
	return float64(e.SuccessCount) / float64(e.FailureCount+1)
}

// InCooldown reports whether the last failure is still inside window
func (e *EgressEndpoint) InCooldown(now time.Time, window time.Duration) bool {
	if e.LastFailureAt.IsZero() {
		return false
	}
	return e.LastFailureAt.Add(window).After(now)
}

// IsDirect reports whether the endpoint means "no proxy"
func (e *EgressEndpoint) IsDirect() bool {
	return e.Address == DirectAddress
}

// ProxyURL returns the address to hand to the extraction engine, empty for direct
func (e *EgressEndpoint) ProxyURL() string {
	if e.IsDirect() {
		return ""
	}
	return e.Address
}
