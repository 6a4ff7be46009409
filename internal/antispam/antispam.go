// Package antispam throttles clients that request dungeons too quickly.
package antispam

import (
	"fmt"
	"sync"
	"time"
)

// Config holds anti-spam configuration
type Config struct {
	Enabled     bool          `yaml:"enabled"`      // Whether anti-spam is enabled
	MaxRequests int           `yaml:"max_requests"` // Max requests allowed in the time window
	TimeWindow  time.Duration `yaml:"time_window"`  // Time window for rate limiting

	// RepeatCooldown is how long before the same request can be made again.
	// 0 disables repeat detection.
	RepeatCooldown time.Duration `yaml:"repeat_cooldown"`
}

// DefaultConfig returns sensible defaults for anti-spam
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxRequests: 30,
		TimeWindow:  10 * time.Second,
	}
}

// Validate reports settings that would block every request
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.TimeWindow <= 0 {
		return fmt.Errorf("time_window must be positive, got %v", c.TimeWindow)
	}
	if c.RepeatCooldown < 0 {
		return fmt.Errorf("repeat_cooldown must not be negative, got %v", c.RepeatCooldown)
	}
	return nil
}

// Tracker tracks request activity for a single client
type Tracker struct {
	mu           sync.Mutex
	config       Config
	requestTimes []time.Time          // Timestamps of recent requests
	lastRequests map[string]time.Time // request key -> last seen time
}

// NewTracker creates a new tracker with the given config
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config:       config,
		requestTimes: make([]time.Time, 0, config.MaxRequests),
		lastRequests: make(map[string]time.Time),
	}
}

// CheckResult contains the result of a spam check
type CheckResult struct {
	Allowed     bool
	Reason      string
	WaitSeconds int // How long to wait before trying again (if not allowed)
}

// Check determines if a request should be allowed. key identifies the
// request for repeat detection.
func (t *Tracker) Check(key string) CheckResult {
	return t.check(key, time.Now())
}

func (t *Tracker) check(key string, now time.Time) CheckResult {
	if !t.config.Enabled {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup(now)

	if t.config.RepeatCooldown > 0 {
		if lastTime, exists := t.lastRequests[key]; exists {
			remaining := t.config.RepeatCooldown - now.Sub(lastTime)
			return CheckResult{
				Allowed:     false,
				Reason:      "repeated request",
				WaitSeconds: waitSeconds(remaining),
			}
		}
	}

	if len(t.requestTimes) >= t.config.MaxRequests {
		remaining := t.requestTimes[0].Add(t.config.TimeWindow).Sub(now)
		return CheckResult{
			Allowed:     false,
			Reason:      "too many requests",
			WaitSeconds: waitSeconds(remaining),
		}
	}

	t.requestTimes = append(t.requestTimes, now)
	if t.config.RepeatCooldown > 0 {
		t.lastRequests[key] = now
	}
	return CheckResult{Allowed: true}
}

func waitSeconds(d time.Duration) int {
	return int(d.Seconds()) + 1
}

// cleanup removes expired entries
func (t *Tracker) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.TimeWindow)
	kept := t.requestTimes[:0]
	for _, at := range t.requestTimes {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.requestTimes = kept

	repeatCutoff := now.Add(-t.config.RepeatCooldown)
	for key, at := range t.lastRequests {
		if !at.After(repeatCutoff) {
			delete(t.lastRequests, key)
		}
	}
}

// idle reports whether the tracker holds nothing that is still in force
func (t *Tracker) idle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup(now)
	return len(t.requestTimes) == 0 && len(t.lastRequests) == 0
}

// Reset clears all tracking data
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestTimes = make([]time.Time, 0, t.config.MaxRequests)
	t.lastRequests = make(map[string]time.Time)
}

// Guard keeps one tracker per client
type Guard struct {
	mu       sync.Mutex
	config   Config
	trackers map[string]*Tracker
	checks   int
}

// sweepEvery is how many checks pass between evictions of idle trackers
const sweepEvery = 256

// NewGuard creates a guard applying config to every client
func NewGuard(config Config) *Guard {
	return &Guard{
		config:   config,
		trackers: make(map[string]*Tracker),
	}
}

// Check runs the client's tracker against a request
func (g *Guard) Check(client, key string) CheckResult {
	return g.check(client, key, time.Now())
}

func (g *Guard) check(client, key string, now time.Time) CheckResult {
	if !g.config.Enabled {
		return CheckResult{Allowed: true}
	}

	// Held through the tracker check so a sweep cannot evict the tracker
	// between lookup and use.
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checks++
	if g.checks%sweepEvery == 0 {
		g.sweep(now)
	}
	tracker, ok := g.trackers[client]
	if !ok {
		tracker = NewTracker(g.config)
		g.trackers[client] = tracker
	}
	return tracker.check(key, now)
}

// sweep drops trackers with nothing in force. Caller holds g.mu.
func (g *Guard) sweep(now time.Time) {
	for client, tracker := range g.trackers {
		if tracker.idle(now) {
			delete(g.trackers, client)
		}
	}
}

// Clients returns the number of clients currently tracked
func (g *Guard) Clients() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.trackers)
}
