package session

import (
	"math/rand"
	"time"
)

// NextBackoffDelay returns how long to wait after failed dial attempt N
// (1-based). The delay grows by Multiplier per attempt and stops at
// MaxDelay. Jitter scales it by [0.5, 1.5); a nil rng pins the factor at
// 0.5. The first attempt always waits exactly InitialDelay.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return max(cfg.InitialDelay, 0)
	}
	growth := max(cfg.Multiplier, 1.0)

	delay := float64(cfg.InitialDelay)
	for i := 0; i < attempt-1; i++ {
		delay *= growth
		if cfg.MaxDelay > 0 && delay >= float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
			break
		}
	}
	if !cfg.Jitter {
		return time.Duration(delay)
	}
	factor := 0.5
	if rng != nil {
		factor += rng.Float64()
	}
	return time.Duration(delay * factor)
}
