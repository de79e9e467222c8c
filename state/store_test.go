package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type propCounter struct {
	sync.Mutex
	m     map[Prop]int
	order []Prop
}

func newPropCounter(s *Store, props ...Prop) *propCounter {
	pc := &propCounter{m: make(map[Prop]int)}
	s.Subscribe(func(p Prop) {
		pc.Lock()
		pc.m[p]++
		pc.order = append(pc.order, p)
		pc.Unlock()
	}, props...)
	return pc
}

func (pc *propCounter) get(p Prop) int {
	pc.Lock()
	defer pc.Unlock()
	return pc.m[p]
}

func (pc *propCounter) total() int {
	pc.Lock()
	defer pc.Unlock()
	return len(pc.order)
}

func TestStoreDefaults(t *testing.T) {
	t.Parallel()
	s := NewStore()
	assert.Equal(t, LinkHealth{Connected: false, LinkStale: true, RxAgeMs: 0}, s.Link())
	assert.Equal(t, VehicleSnapshot{BbbStale: true}, s.Vehicle())
	assert.True(t, s.LinkStale())
	assert.True(t, s.BbbStale())
	assert.False(t, s.Connected())
	for _, p := range AllProps() {
		switch p {
		case PropLinkStale, PropBbbStale:
			assert.Equal(t, true, s.Value(p), p.String())
		case PropRxAgeMs:
			assert.Equal(t, 0, s.Value(p))
		default:
			assert.Equal(t, false, s.Value(p), p.String())
		}
	}
}

func TestStoreChangeSuppression(t *testing.T) {
	t.Parallel()
	s := NewStore()
	pc := newPropCounter(s)

	s.Update(func(w *Writer) {
		w.SetLinkStale(true) // already true
		w.SetBbbStale(true)  // already true
		w.SetRxAgeMs(0)
		w.SetConnected(false)
		assert.False(t, w.Changed())
	})
	assert.Equal(t, 0, pc.total())

	s.Update(func(w *Writer) { w.SetConnected(true) })
	s.Update(func(w *Writer) { w.SetConnected(true) })
	assert.Equal(t, 1, pc.get(PropConnected))
	assert.Equal(t, 1, pc.total())

	s.Update(func(w *Writer) { w.SetRxAgeMs(-5) }) // clamped to 0, unchanged
	assert.Equal(t, 0, pc.get(PropRxAgeMs))
	s.Update(func(w *Writer) { w.SetRxAgeMs(150) })
	s.Update(func(w *Writer) { w.SetRxAgeMs(150) })
	assert.Equal(t, 1, pc.get(PropRxAgeMs))
	assert.Equal(t, 150, s.RxAgeMs())
}

func TestStoreBatchAppliedBeforeNotify(t *testing.T) {
	t.Parallel()
	s := NewStore()
	var seen []VehicleSnapshot
	s.Subscribe(func(p Prop) { seen = append(seen, s.Vehicle()) })

	frame := VehicleSnapshot{LeftIndicator: true, HighBeam: true, WarnOil: true}
	s.Update(func(w *Writer) { w.SetVehicle(frame) })

	// LeftIndicator, HighBeam, WarnOil, BbbStale(true->false)
	require.Len(t, seen, 4)
	for _, v := range seen {
		assert.Equal(t, frame, v)
	}
}

func TestStoreNotifyOrderAndFilter(t *testing.T) {
	t.Parallel()
	s := NewStore()
	all := newPropCounter(s)
	warn := newPropCounter(s, PropWarnBrake, PropWarnDoor)

	s.Update(func(w *Writer) {
		w.SetWarnDoor(true)
		w.SetConnected(true)
		w.SetWarnBrake(true)
		w.SetLeftIndicator(true)
	})
	assert.Equal(t, []Prop{PropConnected, PropLeftIndicator, PropWarnBrake, PropWarnDoor}, all.order)
	assert.Equal(t, []Prop{PropWarnBrake, PropWarnDoor}, warn.order)
}

func TestStoreUnsubscribe(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := 0
	cancel := s.Subscribe(func(Prop) { n++ }, PropHighBeam)
	s.Update(func(w *Writer) { w.SetHighBeam(true) })
	cancel()
	cancel()
	s.Update(func(w *Writer) { w.SetHighBeam(false) })
	assert.Equal(t, 1, n)
}

func TestStoreSubscribeFromCallback(t *testing.T) {
	t.Parallel()
	s := NewStore()
	late := 0
	s.Subscribe(func(p Prop) {
		// must not deadlock, takes effect from next batch
		s.Subscribe(func(Prop) { late++ }, PropWarnCharge)
	}, PropWarnOil)
	s.Update(func(w *Writer) {
		w.SetWarnOil(true)
		w.SetWarnCharge(true)
	})
	assert.Equal(t, 0, late)
	s.Update(func(w *Writer) { w.SetWarnCharge(false) })
	assert.Equal(t, 1, late)
}

func TestStoreConcurrentReaders(t *testing.T) {
	t.Parallel()
	s := NewStore()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := s.Vehicle()
				// writer always sets both together
				assert.Equal(t, v.LeftIndicator, v.RightIndicator)
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		on := i%2 == 0
		s.Update(func(w *Writer) {
			w.SetLeftIndicator(on)
			w.SetRightIndicator(on)
		})
	}
	close(stop)
	wg.Wait()
}

func TestPropString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "connected", PropConnected.String())
	assert.Equal(t, "bbbStale", PropBbbStale.String())
	assert.Equal(t, "Prop(200)", Prop(200).String())
	assert.Len(t, AllProps(), 11)
	assert.Panics(t, func() { NewStore().Subscribe(func(Prop) {}, Prop(99)) })
}
