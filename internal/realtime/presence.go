package realtime

import (
	"strings"
	"sync"
	"time"
)

// Presence tracks live sockets per user so a second tab does not flip a
// user offline when the first one closes.
type Presence struct {
	mu      sync.RWMutex
	sockets map[string]map[string]struct{} // userId -> socket ids
	owners  map[string]string              // socket id -> userId
}

func NewPresence() *Presence {
	return &Presence{
		sockets: make(map[string]map[string]struct{}),
		owners:  make(map[string]string),
	}
}

// Add registers a socket and reports whether it is the user's first.
func (p *Presence) Add(userID, socketID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.sockets[userID]
	if !ok {
		set = make(map[string]struct{})
		p.sockets[userID] = set
	}
	set[socketID] = struct{}{}
	p.owners[socketID] = userID
	return !ok
}

// Remove drops a socket. It returns the owning user and whether that was
// the user's last socket.
func (p *Presence) Remove(socketID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.owners[socketID]
	if !ok {
		return "", false
	}
	delete(p.owners, socketID)

	set := p.sockets[userID]
	delete(set, socketID)
	if len(set) == 0 {
		delete(p.sockets, userID)
		return userID, true
	}
	return userID, false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sockets[userID]
	return ok
}

func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.sockets))
	for id := range p.sockets {
		users = append(users, id)
	}
	return users
}

// Throttle lets one event per key through every interval.
type Throttle struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{last: make(map[string]time.Time), interval: interval, now: time.Now}
}

func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

// ResetPrefix forgets every key starting with prefix.
func (t *Throttle) ResetPrefix(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key := range t.last {
		if strings.HasPrefix(key, prefix) {
			delete(t.last, key)
			n++
		}
	}
	return n
}

// Reset forgets key so the next Allow passes.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}
