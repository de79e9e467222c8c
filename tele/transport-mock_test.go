package tele

import (
	"context"
	"io"
	"sync"
	"testing"
)

type mockDial struct {
	conn *mockConn
	err  error
}

// mockDialer returns queued results in order, Dial blocks until next result
// is queued or ctx is done.
type mockDialer struct {
	t       testing.TB
	results chan mockDial
	urls    chan string
}

func newMockDialer(t testing.TB) *mockDialer {
	return &mockDialer{
		t:       t,
		results: make(chan mockDial, 32),
		urls:    make(chan string, 32),
	}
}

func (self *mockDialer) fail(err error) { self.results <- mockDial{err: err} }
func (self *mockDialer) accept() *mockConn {
	c := newMockConn()
	self.results <- mockDial{conn: c}
	return c
}

func (self *mockDialer) Dial(ctx context.Context, url string) (Conn, error) {
	select {
	case self.urls <- url:
	default:
	}
	select {
	case r := <-self.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type mockConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		in:     make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (self *mockConn) send(s string) { self.in <- []byte(s) }

func (self *mockConn) isClosed() bool {
	select {
	case <-self.closed:
		return true
	default:
		return false
	}
}

func (self *mockConn) Receive() ([]byte, error) {
	select {
	case b := <-self.in:
		return b, nil
	case <-self.closed:
		return nil, io.EOF
	}
}

func (self *mockConn) Close() error {
	self.once.Do(func() { close(self.closed) })
	return nil
}
