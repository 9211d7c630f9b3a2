package scheduler

import (
	"sort"
	"sync"
	"time"
)

// TimerRegistry owns the live set of armed timers, one per key.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*armedTimer
	now    func() time.Time
}

type armedTimer struct {
	timer    *time.Timer
	schedule Schedule
	stopped  bool
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[string]*armedTimer),
		now:    time.Now,
	}
}

// Arm schedules fn under key, replacing any timer already armed there.
// The timer re-arms itself before each call, so a slow fn never delays
// the next firing.
func (r *TimerRegistry) Arm(key string, s Schedule, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[key]; ok {
		old.stop()
	}
	at := &armedTimer{schedule: s}
	r.timers[key] = at
	r.start(at, fn)
}

// caller holds r.mu
func (r *TimerRegistry) start(at *armedTimer, fn func()) {
	at.timer = time.AfterFunc(at.schedule.Delay(r.now()), func() {
		r.mu.Lock()
		if at.stopped {
			r.mu.Unlock()
			return
		}
		r.start(at, fn)
		r.mu.Unlock()

		fn()
	})
}

// DisarmAll cancels every timer.
func (r *TimerRegistry) DisarmAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, at := range r.timers {
		at.stop()
		delete(r.timers, key)
	}
}

// Armed lists the armed keys in sorted order.
func (r *TimerRegistry) Armed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.timers))
	for key := range r.timers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Schedule returns what is armed under key.
func (r *TimerRegistry) Schedule(key string) (Schedule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.timers[key]
	if !ok {
		return nil, false
	}
	return at.schedule, true
}

func (at *armedTimer) stop() {
	at.stopped = true
	if at.timer != nil {
		at.timer.Stop()
	}
}
