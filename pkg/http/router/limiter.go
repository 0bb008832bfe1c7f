package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*client
	ttl     time.Duration
	lastGC  time.Time
	now     func() time.Time
}

func newClientLimiters(ttl time.Duration) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*client),
		ttl:     ttl,
		now:     time.Now,
	}
}

// get returns the limiter of ip. Clients idle for longer than ttl are dropped.
func (cl *clientLimiters) get(ip string, limit rate.Limit, burst int) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if now.Sub(cl.lastGC) > cl.ttl {
		for k, c := range cl.clients {
			if now.Sub(c.lastSeen) > cl.ttl {
				delete(cl.clients, k)
			}
		}
		cl.lastGC = now
	}

	c, ok := cl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(limit, burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (cl *clientLimiters) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}
