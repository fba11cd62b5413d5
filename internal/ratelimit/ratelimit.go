// Package ratelimit is an in-memory sliding-window limiter. Each
// process has independent state, so it is a best-effort throttle; the
// store's conditional updates remain the authoritative enforcement
// layer for anything with money attached.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Config struct {
	// Name scopes counters so independent limits never collide.
	Name        string
	MaxRequests int
	Window      time.Duration
}

type Result struct {
	OK        bool
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	count       int
	windowStart time.Time
}

const cleanupInterval = 5 * time.Minute

type Limiter struct {
	mu          sync.Mutex
	stores      map[string]map[string]entry
	lastCleanup time.Time
	now         func() time.Time
}

func New() *Limiter {
	return &Limiter{
		stores:      make(map[string]map[string]entry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Check records one request for the identifier and reports whether it
// fits the window, how many more will, and when the window resets.
func (l *Limiter) Check(cfg Config, identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.stores[cfg.Name]
	if st == nil {
		st = make(map[string]entry)
		l.stores[cfg.Name] = st
	}

	now := l.now()
	l.cleanup(st, cfg.Window, now)

	e, ok := st[identifier]
	if !ok || now.Sub(e.windowStart) > cfg.Window {
		st[identifier] = entry{count: 1, windowStart: now}
		return Result{OK: true, Remaining: cfg.MaxRequests - 1, ResetAt: now.Add(cfg.Window)}
	}

	if e.count >= cfg.MaxRequests {
		return Result{OK: false, Remaining: 0, ResetAt: e.windowStart.Add(cfg.Window)}
	}

	e.count++
	st[identifier] = e
	return Result{OK: true, Remaining: cfg.MaxRequests - e.count, ResetAt: e.windowStart.Add(cfg.Window)}
}

func (l *Limiter) cleanup(st map[string]entry, window time.Duration, now time.Time) {
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	l.lastCleanup = now
	for key, e := range st {
		if now.Sub(e.windowStart) > window {
			delete(st, key)
		}
	}
}

// ClientIdentifier extracts a throttling key from the request. The
// rightmost X-Forwarded-For entry is the one appended by the trusted
// proxy; the leftmost is attacker-controlled and must not be used.
func ClientIdentifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[len(parts)-1])
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
