package toolregistry

import (
	"sync"
	"time"

	"github.com/convene/convene/internal/metrics"
)

// Registry is registered per room; the owning Room is its only writer
// through the command path, but it is safe for concurrent use on its own.
type Registry struct {
	mu    sync.Mutex
	tools map[string]*Tool
	usage map[string]*agentUsage // keyed by tool+"/"+agentID
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
		usage: make(map[string]*agentUsage),
	}
}

// Register adds or replaces a tool definition.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

func usageKey(tool, agentID string) string { return tool + "/" + agentID }

// HasPermission runs the deny > allow-list > role-set > tier > default
// pipeline:
//
//  1. agent in deniedAgentIds => false
//  2. allowedAgentIds nonempty => true iff agent is in it
//  3. allowedRoles nonempty and role not in it => false
//  4. tier set => true iff role matches tier
//  5. otherwise => true
func (r *Registry) HasPermission(toolName, agentID, role string) bool {
	r.mu.Lock()
	t, ok := r.tools[toolName]
	r.mu.Unlock()
	if !ok || !t.Enabled {
		return false
	}

	if t.DeniedAgentIDs[agentID] {
		return false
	}
	if len(t.AllowedAgentIDs) > 0 {
		return t.AllowedAgentIDs[agentID]
	}
	if len(t.AllowedRoles) > 0 && !t.AllowedRoles[role] {
		return false
	}
	if t.Tier != "" {
		return tierMatches(t.Tier, role)
	}
	return true
}

// agentUsage tracks one agent's rolling-window counters, concurrent slots,
// and lifetime usage statistics for one tool.
type agentUsage struct {
	hourlyWindowStart time.Time
	hourlyCount       int
	dailyWindowStart  time.Time
	dailyCount        int
	concurrent        int

	totalCalls      int
	successCalls    int
	totalDurationMs int64
}

// UsageStats is the lifetime usage accounting for one (tool, agent) pair.
type UsageStats struct {
	TotalCalls      int
	SuccessCalls    int
	FailureCalls    int
	TotalDurationMs int64
}

// CheckRateLimit inspects the three rolling windows (hourly, daily,
// concurrent) and reports whether tool may be invoked now by agentID.
func (r *Registry) CheckRateLimit(toolName, agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[toolName]
	if !ok || t.RateLimit == nil {
		return true
	}
	u := r.usageFor(toolName, agentID)
	now := time.Now()
	r.rollWindows(u, now)

	rl := t.RateLimit
	if rl.Hourly > 0 && u.hourlyCount >= rl.Hourly {
		return false
	}
	if rl.Daily > 0 && u.dailyCount >= rl.Daily {
		return false
	}
	if rl.Concurrent > 0 && u.concurrent >= rl.Concurrent {
		return false
	}
	return true
}

func (r *Registry) usageFor(toolName, agentID string) *agentUsage {
	key := usageKey(toolName, agentID)
	u, ok := r.usage[key]
	if !ok {
		u = &agentUsage{}
		r.usage[key] = u
	}
	return u
}

func (r *Registry) rollWindows(u *agentUsage, now time.Time) {
	if u.hourlyWindowStart.IsZero() || now.Sub(u.hourlyWindowStart) >= time.Hour {
		u.hourlyWindowStart = now
		u.hourlyCount = 0
	}
	if u.dailyWindowStart.IsZero() || now.Sub(u.dailyWindowStart) >= 24*time.Hour {
		u.dailyWindowStart = now
		u.dailyCount = 0
	}
}

// RecordUsage updates counters after an invocation attempt.
//
// The triggering request is counted immediately when a window is first
// created; a fresh window never lets its own first request through
// uncounted.
func (r *Registry) RecordUsage(toolName, agentID string, success bool, durationMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[toolName]
	outcome := "denied"
	if ok {
		if success {
			outcome = "success"
		} else {
			outcome = "failure"
		}
	}
	metrics.ToolInvocationsTotal.WithLabelValues(toolName, outcome).Inc()
	if !ok {
		return
	}

	u := r.usageFor(toolName, agentID)
	u.totalCalls++
	if success {
		u.successCalls++
	}
	u.totalDurationMs += durationMs

	if t.RateLimit == nil {
		return
	}
	now := time.Now()
	r.rollWindows(u, now)
	u.hourlyCount++
	u.dailyCount++
	if t.RateLimit.Concurrent > 0 {
		u.concurrent++
	}
}

// Stats returns the lifetime usage accounting recorded for toolName by
// agentID.
func (r *Registry) Stats(toolName, agentID string) UsageStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[usageKey(toolName, agentID)]
	if !ok {
		return UsageStats{}
	}
	return UsageStats{
		TotalCalls:      u.totalCalls,
		SuccessCalls:    u.successCalls,
		FailureCalls:    u.totalCalls - u.successCalls,
		TotalDurationMs: u.totalDurationMs,
	}
}

// ReleaseConcurrentSlot decrements the in-flight counter after an
// invocation completes.
func (r *Registry) ReleaseConcurrentSlot(toolName, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[usageKey(toolName, agentID)]
	if !ok {
		return
	}
	if u.concurrent > 0 {
		u.concurrent--
	}
}
