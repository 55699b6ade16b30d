package agentbus

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxTrackedReplies bounds memory when replies are never polled.
const maxTrackedReplies = 4096

type pending struct {
	done  chan struct{}
	reply string
}

// Registry holds replies by message id until they expire. A reply is set at
// most once.
type Registry struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *pending]
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Registry{
		entries: expirable.NewLRU[string, *pending](maxTrackedReplies, nil, ttl),
	}
}

// Register opens a slot for id. Registering an existing id is a no-op.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries.Contains(id) {
		return
	}
	r.entries.Add(id, &pending{done: make(chan struct{})})
}

// SetResponse stores the reply for id and wakes waiters. It reports false when
// the id is unknown, expired or already answered.
func (r *Registry) SetResponse(id, reply string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries.Peek(id)
	if !ok {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
	}
	p.reply = reply
	close(p.done)
	return true
}

// Response returns the reply for id if it has been set.
func (r *Registry) Response(id string) (string, bool) {
	p, ok := r.entries.Get(id)
	if !ok {
		return "", false
	}
	select {
	case <-p.done:
		return p.reply, true
	default:
		return "", false
	}
}

// Wait blocks until the reply for id is set or ctx ends.
func (r *Registry) Wait(ctx context.Context, id string) (string, error) {
	p, ok := r.entries.Peek(id)
	if !ok {
		return "", ErrUnknownMessage
	}
	select {
	case <-p.done:
		return p.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len reports the number of tracked ids.
func (r *Registry) Len() int {
	return r.entries.Len()
}
