package tele

import (
	"time"

	"github.com/beagley/hubclient/helpers"
	"github.com/beagley/hubclient/helpers/atomic_clock"
	"github.com/beagley/hubclient/state"
)

// Watchdog owns LinkStale and RxAgeMs. Client calls Tick periodically,
// whether or not any message arrived in between.
// On stale link it forces BbbStale=true but keeps last received
// indicators and warnings: staleness flags say "do not trust", payload
// fields stay as last known.
type Watchdog struct {
	fresh   *atomic_clock.Clock
	store   *state.Store
	timeout time.Duration
}

func NewWatchdog(store *state.Store, fresh *atomic_clock.Clock, timeout time.Duration) *Watchdog {
	return &Watchdog{fresh: fresh, store: store, timeout: timeout}
}

func (self *Watchdog) Tick(now time.Time) {
	age, ok := self.fresh.SinceTime(now)
	if !ok {
		self.store.Update(func(w *state.Writer) {
			w.SetRxAgeMs(0)
			w.SetLinkStale(true)
		})
		return
	}

	ageMs := helpers.DurationMs(age)
	stale := ageMs > helpers.DurationMs(self.timeout)
	self.store.Update(func(w *state.Writer) {
		w.SetRxAgeMs(ageMs)
		w.SetLinkStale(stale)
		if stale {
			w.SetBbbStale(true)
		}
	})
}
