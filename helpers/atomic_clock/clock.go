// Package atomic_clock is convenient API around atomic int64 monotonic clock.
// Values are nanoseconds since process start measured with monotonic reading
// of time.Time, so wall clock jumps (NTP, RTC set on boot) do not affect Since.
// Use for freshness and time accounting. Do not use for calendar time.
package atomic_clock

import (
	"math"
	"sync/atomic"
	"time"
)

// Process local epoch. Offsets from it keep monotonic reading.
var epoch = time.Now()

const unset int64 = math.MinInt64

// Zero Clock{} is set to epoch, not unset. Use New() for clock which may be unset.
type Clock struct{ v int64 }

func source() int64                 { return int64(time.Since(epoch)) }
func offset(t time.Time) int64      { return int64(t.Sub(epoch)) }
func (c *Clock) get() int64         { return atomic.LoadInt64(&c.v) }
func (c *Clock) set(new int64)      { atomic.StoreInt64(&c.v, new) }
func (c *Clock) cas(old, new int64) { atomic.CompareAndSwapInt64(&c.v, old, new) }

func (c *Clock) IsSet() bool { return c.get() != unset }

func (c *Clock) SetTime(t time.Time) { c.set(offset(t)) }
func (c *Clock) SetNow()             { c.set(source()) }
func (c *Clock) SetNowIfUnset()      { c.cas(unset, source()) }
func (c *Clock) Unset()              { c.set(unset) }

// Time returns zero time.Time if clock is unset.
func (c *Clock) Time() time.Time {
	v := c.get()
	if v == unset {
		return time.Time{}
	}
	return epoch.Add(time.Duration(v))
}

// Sub panics on unset clocks.
func (c *Clock) Sub(begin *Clock) time.Duration {
	a, b := c.get(), begin.get()
	if a == unset || b == unset {
		panic("code error atomic_clock.Sub on unset clock")
	}
	return time.Duration(a - b)
}

// SinceTime returns duration from clock to now and false if clock is unset.
func (c *Clock) SinceTime(now time.Time) (time.Duration, bool) {
	v := c.get()
	if v == unset {
		return 0, false
	}
	return time.Duration(offset(now) - v), true
}

func New() *Clock                 { return &Clock{v: unset} }
func Now() *Clock                 { return &Clock{v: source()} }
func FromTime(t time.Time) *Clock { return &Clock{v: offset(t)} }

func Since(begin *Clock) time.Duration {
	d, ok := begin.SinceTime(time.Now())
	if !ok {
		panic("code error atomic_clock.Since on unset clock")
	}
	return d
}
