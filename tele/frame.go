package tele

import (
	"time"

	"github.com/beagley/hubclient/helpers/atomic_clock"
	"github.com/beagley/hubclient/log2"
	"github.com/beagley/hubclient/state"
	"github.com/tidwall/gjson"
)

// Only messages of this type are vehicle state frames,
// transport may carry other message families.
const FrameTypeVehicleState = "vehicle_state"

// Frame is decoded "vehicle_state" message with defaults applied.
// Wire:
//
//	{"type": "vehicle_state",
//	 "indicators": {"left": bool, "right": bool, "high_beam": bool},
//	 "warnings": {"brake": bool, "oil": bool, "charge": bool, "door": bool},
//	 "_health": {"stale": bool}}
type Frame struct {
	Vehicle state.VehicleSnapshot
}

// ParseFrame returns false for anything but JSON object of vehicle_state type.
// Missing or wrong typed sub-objects and fields take defaults:
// false for indicators and warnings, true for _health.stale.
func ParseFrame(b []byte) (Frame, bool) {
	if !gjson.ValidBytes(b) {
		return Frame{}, false
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return Frame{}, false
	}
	if t := root.Get("type"); t.Type != gjson.String || t.Str != FrameTypeVehicleState {
		return Frame{}, false
	}
	indicators := subObject(root, "indicators")
	warnings := subObject(root, "warnings")
	health := subObject(root, "_health")

	return Frame{Vehicle: state.VehicleSnapshot{
		LeftIndicator:  boolField(indicators, "left", false),
		RightIndicator: boolField(indicators, "right", false),
		HighBeam:       boolField(indicators, "high_beam", false),
		WarnBrake:      boolField(warnings, "brake", false),
		WarnOil:        boolField(warnings, "oil", false),
		WarnCharge:     boolField(warnings, "charge", false),
		WarnDoor:       boolField(warnings, "door", false),
		BbbStale:       boolField(health, "stale", true),
	}}, true
}

// Empty result for missing or non-object value, all lookups in it miss.
func subObject(parent gjson.Result, key string) gjson.Result {
	if v := parent.Get(key); v.IsObject() {
		return v
	}
	return gjson.Result{}
}

func boolField(obj gjson.Result, key string, def bool) bool {
	if !obj.IsObject() {
		return def
	}
	switch obj.Get(key).Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	return def
}

// Decoder applies accepted frames to Store and marks freshness.
// Rejected messages have no side effects except Stat and debug log.
// Never touches LinkStale, that is Watchdog's job.
type Decoder struct {
	fresh *atomic_clock.Clock
	log   *log2.Log
	now   func() time.Time
	stat  *Stat
	store *state.Store
}

func NewDecoder(store *state.Store, fresh *atomic_clock.Clock, log *log2.Log, stat *Stat) *Decoder {
	return &Decoder{
		fresh: fresh,
		log:   log,
		now:   time.Now,
		stat:  stat,
		store: store,
	}
}

func (self *Decoder) HandleMessage(raw []byte) bool {
	frame, ok := ParseFrame(raw)
	if !ok {
		if self.log.Enabled(log2.LDebug) {
			self.log.Debugf("frame ignored len=%d head=%q", len(raw), head(raw, 64))
		}
		if self.stat != nil {
			self.stat.Modify(func(s *Stat) { s.FramesIgnored++ })
		}
		return false
	}

	self.fresh.SetTime(self.now())
	self.store.Update(func(w *state.Writer) { w.SetVehicle(frame.Vehicle) })
	if self.stat != nil {
		self.stat.Modify(func(s *Stat) { s.FramesAccepted++ })
	}
	return true
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
