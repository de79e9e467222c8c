package tele

import (
	"fmt"
	"sync"
	"time"
)

// Link counters since process start, informational only.
type Stat struct { //nolint:maligned
	sync.Mutex
	Dials          uint32
	Connects       uint32
	Disconnects    uint32
	FramesAccepted uint32
	FramesIgnored  uint32
	LastConnect    time.Time
	LastDisconnect time.Time
	LastError      string
}

// Copy without lock, caller must hold self.Mutex.
func (self *Stat) Locked_Copy() Stat {
	return Stat{
		Dials:          self.Dials,
		Connects:       self.Connects,
		Disconnects:    self.Disconnects,
		FramesAccepted: self.FramesAccepted,
		FramesIgnored:  self.FramesIgnored,
		LastConnect:    self.LastConnect,
		LastDisconnect: self.LastDisconnect,
		LastError:      self.LastError,
	}
}

func (self *Stat) Modify(fun func(*Stat)) {
	self.Lock()
	fun(self)
	self.Unlock()
}

func (self *Stat) Copy() Stat {
	self.Lock()
	defer self.Unlock()
	return self.Locked_Copy()
}

// Caller must hold lock or own a copy.
func (self *Stat) String() string {
	return fmt.Sprintf("dials=%d connects=%d disconnects=%d frames_accepted=%d frames_ignored=%d last_error=%q",
		self.Dials, self.Connects, self.Disconnects, self.FramesAccepted, self.FramesIgnored, self.LastError)
}
