package mockservice

import (
	"context"
	"sync"
	"time"
)

type notify struct {
	notify chan struct{}
	mu     sync.Mutex
}

func newNotify() *notify {
	return &notify{
		notify: make(chan struct{}),
	}
}

// Wait returns on the next Notify, after timeout or when ctx is done.
func (n *notify) Wait(ctx context.Context, timeout time.Duration) {
	n.mu.Lock()
	notify := n.notify
	n.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-notify:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (n *notify) Notify() {
	n.mu.Lock()
	close(n.notify)
	n.notify = make(chan struct{})
	n.mu.Unlock()
}
