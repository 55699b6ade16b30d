package dashboard

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// probeAll dials every agent port concurrently. A refused or slow dial is
// reported offline, never as an error.
func probeAll(ctx context.Context, host string, agents []Agent, timeout time.Duration) map[string]string {
	var (
		mu  sync.Mutex
		out = make(map[string]string, len(agents))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		g.Go(func() error {
			state := statusOffline
			if probe(ctx, a.addr(host), timeout) {
				state = statusOnline
			}
			mu.Lock()
			out[a.ID] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func probe(ctx context.Context, addr string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
