package guard

import (
	"context"
	"strings"
	"sync"
	"time"
)

const DefaultMaxKeys = 100000

type cooldownState struct {
	at      time.Time
	expires time.Time
}

type burstState struct {
	hits         []time.Time
	window       time.Duration
	blockedUntil time.Time
}

func (s *burstState) idle(now time.Time) bool {
	if now.Before(s.blockedUntil) {
		return false
	}
	return len(s.hits) == 0 || !now.Before(s.hits[len(s.hits)-1].Add(s.window))
}

// Memory keeps cooldowns and burst counters in process. Entries are advisory: losing them
// only relaxes throttling.
type Memory struct {
	mu        sync.Mutex
	now       func() time.Time
	maxKeys   int
	cooldowns map[string]*cooldownState
	bursts    map[string]*burstState
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func WithMaxKeys(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxKeys = n
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:       time.Now,
		maxKeys:   DefaultMaxKeys,
		cooldowns: make(map[string]*cooldownState),
		bursts:    make(map[string]*burstState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func cooldownKey(communityID, userID, key string) string {
	return strings.Join([]string{communityID, userID, key}, ":")
}

func (m *Memory) CheckAndConsumeCooldown(_ context.Context, communityID, userID, key string, duration time.Duration) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := cooldownKey(communityID, userID, key)
	if state, ok := m.cooldowns[k]; ok {
		if remaining := state.at.Add(duration).Sub(now); remaining > 0 {
			return remaining, nil
		}
	} else if len(m.cooldowns) >= m.maxKeys {
		m.sweepCooldowns(now)
		if len(m.cooldowns) >= m.maxKeys {
			m.evictOldestCooldown()
		}
	}

	m.cooldowns[k] = &cooldownState{at: now, expires: now.Add(duration)}
	return 0, nil
}

func (m *Memory) BurstGuard(_ context.Context, bucket, key string, window time.Duration, maxHits int, block time.Duration) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := bucket + ":" + key
	state, ok := m.bursts[k]
	if !ok {
		if len(m.bursts) >= m.maxKeys {
			m.sweepBursts(now)
			if len(m.bursts) >= m.maxKeys {
				m.evictOldestBurst()
			}
		}
		state = &burstState{}
		m.bursts[k] = state
	}
	state.window = window

	if remaining := state.blockedUntil.Sub(now); remaining > 0 {
		return remaining, nil
	}

	cutoff := now.Add(-window)
	kept := state.hits[:0]
	for _, hit := range state.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	state.hits = append(kept, now)

	if len(state.hits) > maxHits {
		state.hits = state.hits[:0]
		state.blockedUntil = now.Add(block)
		return block, nil
	}
	return 0, nil
}

// Sweep drops expired cooldowns and idle burst counters. It returns how many entries were
// removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	return m.sweepCooldowns(now) + m.sweepBursts(now)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.cooldowns) + len(m.bursts)
}

func (m *Memory) sweepCooldowns(now time.Time) int {
	removed := 0
	for k, state := range m.cooldowns {
		if !now.Before(state.expires) {
			delete(m.cooldowns, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) sweepBursts(now time.Time) int {
	removed := 0
	for k, state := range m.bursts {
		if state.idle(now) {
			delete(m.bursts, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) evictOldestCooldown() {
	var oldestKey string
	var oldest time.Time
	for k, state := range m.cooldowns {
		if oldestKey == "" || state.expires.Before(oldest) {
			oldestKey, oldest = k, state.expires
		}
	}
	delete(m.cooldowns, oldestKey)
}

func (m *Memory) evictOldestBurst() {
	var oldestKey string
	var oldest time.Time
	for k, state := range m.bursts {
		var last time.Time
		if len(state.hits) > 0 {
			last = state.hits[len(state.hits)-1]
		}
		if last.Before(state.blockedUntil) {
			last = state.blockedUntil
		}
		if oldestKey == "" || last.Before(oldest) {
			oldestKey, oldest = k, last
		}
	}
	delete(m.bursts, oldestKey)
}
