package state

import (
	"sync"
)

type LinkHealth struct {
	Connected bool
	LinkStale bool // no good frame yet, or last one older than stale timeout
	RxAgeMs   int
}

// VehicleSnapshot is the latest frame content.
// BbbStale is staleness declared by the hub itself, independent of LinkStale.
type VehicleSnapshot struct {
	LeftIndicator  bool
	RightIndicator bool
	HighBeam       bool
	WarnBrake      bool
	WarnOil        bool
	WarnCharge     bool
	WarnDoor       bool
	BbbStale       bool
}

// Values before first connection and first valid frame.
func DefaultLinkHealth() LinkHealth           { return LinkHealth{LinkStale: true} }
func DefaultVehicleSnapshot() VehicleSnapshot { return VehicleSnapshot{BbbStale: true} }

// OnChange is called after value of p changed. Read new value from Store.
type OnChange func(p Prop)

// Store is the only observable surface of hub client.
//   - writes go through Update, unchanged values are not written and not notified
//   - observers are called after the whole batch is applied, outside of lock,
//     on writer goroutine, in Prop order
//   - getters are safe from any goroutine
type Store struct {
	mu      sync.RWMutex
	link    LinkHealth
	vehicle VehicleSnapshot

	submu  sync.Mutex
	subs   []*subscription // copy on write
	lastID uint64
}

type subscription struct {
	id   uint64
	mask propMask
	fn   OnChange
}

func NewStore() *Store {
	return &Store{
		link:    DefaultLinkHealth(),
		vehicle: DefaultVehicleSnapshot(),
	}
}

func (s *Store) Link() LinkHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link
}

func (s *Store) Vehicle() VehicleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicle
}

func (s *Store) Connected() bool      { return s.Link().Connected }
func (s *Store) LinkStale() bool      { return s.Link().LinkStale }
func (s *Store) RxAgeMs() int         { return s.Link().RxAgeMs }
func (s *Store) LeftIndicator() bool  { return s.Vehicle().LeftIndicator }
func (s *Store) RightIndicator() bool { return s.Vehicle().RightIndicator }
func (s *Store) HighBeam() bool       { return s.Vehicle().HighBeam }
func (s *Store) WarnBrake() bool      { return s.Vehicle().WarnBrake }
func (s *Store) WarnOil() bool        { return s.Vehicle().WarnOil }
func (s *Store) WarnCharge() bool     { return s.Vehicle().WarnCharge }
func (s *Store) WarnDoor() bool       { return s.Vehicle().WarnDoor }
func (s *Store) BbbStale() bool       { return s.Vehicle().BbbStale }

// Value returns bool or int depending on property.
func (s *Store) Value(p Prop) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch p {
	case PropConnected:
		return s.link.Connected
	case PropLinkStale:
		return s.link.LinkStale
	case PropRxAgeMs:
		return s.link.RxAgeMs
	case PropLeftIndicator:
		return s.vehicle.LeftIndicator
	case PropRightIndicator:
		return s.vehicle.RightIndicator
	case PropHighBeam:
		return s.vehicle.HighBeam
	case PropWarnBrake:
		return s.vehicle.WarnBrake
	case PropWarnOil:
		return s.vehicle.WarnOil
	case PropWarnCharge:
		return s.vehicle.WarnCharge
	case PropWarnDoor:
		return s.vehicle.WarnDoor
	case PropBbbStale:
		return s.vehicle.BbbStale
	}
	panic("code error unknown " + p.String())
}

// Subscribe registers fn for listed properties, all properties if none listed.
// Returned cancel func is idempotent.
func (s *Store) Subscribe(fn OnChange, props ...Prop) (cancel func()) {
	if fn == nil {
		panic("code error Store.Subscribe fn=nil")
	}
	s.submu.Lock()
	defer s.submu.Unlock()
	s.lastID++
	sub := &subscription{id: s.lastID, mask: maskOf(props), fn: fn}
	subs := make([]*subscription, 0, len(s.subs)+1)
	subs = append(subs, s.subs...)
	s.subs = append(subs, sub)

	var once sync.Once
	return func() { once.Do(func() { s.unsubscribe(sub.id) }) }
}

func (s *Store) unsubscribe(id uint64) {
	s.submu.Lock()
	defer s.submu.Unlock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	s.subs = subs
}

// Update applies all writes done by fn as one batch.
// Must be called from single writer goroutine.
func (s *Store) Update(fn func(w *Writer)) {
	w := Writer{s: s}
	s.mu.Lock()
	fn(&w)
	s.mu.Unlock()
	s.notify(w.changed)
}

func (s *Store) notify(changed propMask) {
	if changed == 0 {
		return
	}
	s.submu.Lock()
	subs := s.subs
	s.submu.Unlock()
	for p := Prop(0); p < propCount; p++ {
		if !changed.has(p) {
			continue
		}
		for _, sub := range subs {
			if sub.mask.has(p) {
				sub.fn(p)
			}
		}
	}
}

// Writer is valid only inside Store.Update callback.
type Writer struct {
	s       *Store
	changed propMask
}

// Changed reports whether any write in this batch changed a value so far.
func (w *Writer) Changed() bool { return w.changed != 0 }

func (w *Writer) setBool(p Prop, field *bool, v bool) {
	if *field == v {
		return
	}
	*field = v
	w.changed |= p.bit()
}

func (w *Writer) SetConnected(v bool) { w.setBool(PropConnected, &w.s.link.Connected, v) }
func (w *Writer) SetLinkStale(v bool) { w.setBool(PropLinkStale, &w.s.link.LinkStale, v) }
func (w *Writer) SetRxAgeMs(v int) {
	if v < 0 {
		v = 0
	}
	if w.s.link.RxAgeMs == v {
		return
	}
	w.s.link.RxAgeMs = v
	w.changed |= PropRxAgeMs.bit()
}

func (w *Writer) SetLeftIndicator(v bool) {
	w.setBool(PropLeftIndicator, &w.s.vehicle.LeftIndicator, v)
}
func (w *Writer) SetRightIndicator(v bool) {
	w.setBool(PropRightIndicator, &w.s.vehicle.RightIndicator, v)
}
func (w *Writer) SetHighBeam(v bool)   { w.setBool(PropHighBeam, &w.s.vehicle.HighBeam, v) }
func (w *Writer) SetWarnBrake(v bool)  { w.setBool(PropWarnBrake, &w.s.vehicle.WarnBrake, v) }
func (w *Writer) SetWarnOil(v bool)    { w.setBool(PropWarnOil, &w.s.vehicle.WarnOil, v) }
func (w *Writer) SetWarnCharge(v bool) { w.setBool(PropWarnCharge, &w.s.vehicle.WarnCharge, v) }
func (w *Writer) SetWarnDoor(v bool)   { w.setBool(PropWarnDoor, &w.s.vehicle.WarnDoor, v) }
func (w *Writer) SetBbbStale(v bool)   { w.setBool(PropBbbStale, &w.s.vehicle.BbbStale, v) }

// SetVehicle writes every snapshot field, each one with change suppression.
func (w *Writer) SetVehicle(v VehicleSnapshot) {
	w.SetLeftIndicator(v.LeftIndicator)
	w.SetRightIndicator(v.RightIndicator)
	w.SetHighBeam(v.HighBeam)
	w.SetWarnBrake(v.WarnBrake)
	w.SetWarnOil(v.WarnOil)
	w.SetWarnCharge(v.WarnCharge)
	w.SetWarnDoor(v.WarnDoor)
	w.SetBbbStale(v.BbbStale)
}
