package state

import "fmt"

// Prop names one published property of the Store.
// Order of constants is notification order within one batch.
type Prop uint8

const (
	PropConnected Prop = iota
	PropLinkStale
	PropRxAgeMs
	PropLeftIndicator
	PropRightIndicator
	PropHighBeam
	PropWarnBrake
	PropWarnOil
	PropWarnCharge
	PropWarnDoor
	PropBbbStale
	propCount
)

var propNames = [propCount]string{
	PropConnected:      "connected",
	PropLinkStale:      "linkStale",
	PropRxAgeMs:        "rxAgeMs",
	PropLeftIndicator:  "leftIndicator",
	PropRightIndicator: "rightIndicator",
	PropHighBeam:       "highBeam",
	PropWarnBrake:      "warnBrake",
	PropWarnOil:        "warnOil",
	PropWarnCharge:     "warnCharge",
	PropWarnDoor:       "warnDoor",
	PropBbbStale:       "bbbStale",
}

func (p Prop) String() string {
	if p < propCount {
		return propNames[p]
	}
	return fmt.Sprintf("Prop(%d)", uint8(p))
}

func (p Prop) bit() propMask { return 1 << p }

func AllProps() []Prop {
	ps := make([]Prop, propCount)
	for i := range ps {
		ps[i] = Prop(i)
	}
	return ps
}

type propMask uint32

func maskOf(props []Prop) propMask {
	if len(props) == 0 {
		return 1<<propCount - 1
	}
	var m propMask
	for _, p := range props {
		if p >= propCount {
			panic(fmt.Sprintf("code error unknown %s", p))
		}
		m |= p.bit()
	}
	return m
}

func (m propMask) has(p Prop) bool { return m&p.bit() != 0 }
