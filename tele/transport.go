package tele

import (
	"context"
)

// Hub transport contract:
//   - Dial blocks until link is open, failed or ctx is done
//   - Dial and Receive errors are all transient, Client retries forever
//   - Receive blocks until next text message; any error means link is gone
//   - Close unblocks pending Receive, safe to call concurrently and many times
//   - receive only, hub client never sends upstream
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Conn interface {
	Receive() ([]byte, error)
	Close() error
}
