package helpers

import (
	"sync/atomic"
	"time"
)

// Limited exponential backoff for reconnect delays.
// First Next() returns Min, each following Next() returns previous delay * K,
// never more than Max. Reset() starts over from Min.
// Zero K means 2.
type Backoff struct {
	next int64 // atomic align

	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms
}

// Use scenario:
//
//	for {
//		err := op()
//		if err == nil { backoff.Reset(); continue }
//		time.Sleep(backoff.Next())
//	}
func (b *Backoff) Next() time.Duration {
	atomic.CompareAndSwapInt64(&b.next, 0, int64(b.limit(b.Min)))
	for {
		cur := atomic.LoadInt64(&b.next)
		k := b.K
		if k == 0 {
			k = 2
		}
		grown := b.limit(time.Duration(float64(cur) * float64(k)))
		if atomic.CompareAndSwapInt64(&b.next, cur, int64(grown)) {
			return time.Duration(cur)
		}
	}
}

// Peek returns delay that following Next() will return.
func (b *Backoff) Peek() time.Duration {
	if next := atomic.LoadInt64(&b.next); next != 0 {
		return time.Duration(next)
	}
	return b.limit(b.Min)
}

func (b *Backoff) Reset() {
	atomic.StoreInt64(&b.next, int64(b.limit(b.Min)))
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
