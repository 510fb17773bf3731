package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// dispatcher runs jobs of one key sequentially and jobs of different keys
// concurrently. A key's goroutine exits once its queue drains.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*jobQueue
	wg     sync.WaitGroup
}

type jobQueue struct {
	jobs []func()
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[int64]*jobQueue)}
}

func (d *dispatcher) Submit(key int64, job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[key]; ok {
		q.jobs = append(q.jobs, job)
		return
	}
	q := &jobQueue{jobs: []func(){job}}
	d.queues[key] = q
	d.wg.Add(1)
	go d.drain(key, q)
}

func (d *dispatcher) drain(key int64, q *jobQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		job()
	}
}

// Wait blocks until every submitted job has run.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

// userLimiter is a token bucket per user.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*limiterEntry
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// A non-positive perSecond disables limiting.
func newUserLimiter(perSecond float64, burst int) *userLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{limit: limit, burst: burst, limiters: make(map[int64]*limiterEntry), now: time.Now}
}

func (u *userLimiter) allow(userID int64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now()
	e, ok := u.limiters[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(u.limit, u.burst)}
		u.limiters[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// prune forgets users idle for longer than idle.
func (u *userLimiter) prune(idle time.Duration) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	cutoff := u.now().Add(-idle)
	removed := 0
	for id, e := range u.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(u.limiters, id)
			removed++
		}
	}
	return removed
}
