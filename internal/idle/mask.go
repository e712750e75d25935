// Package idle implements the event-subscription side of the protocol: the
// category bitmask a client subscribes to, the per-connection Subscriber that
// accumulates state-change notifications, and the process-wide Hub that
// fans published events out to every connection.
//
// Pending Flags
// =============
//
// Every connection owns a Subscriber from the moment it is accepted, not only
// while it is idle. Published events are OR-ed into the subscriber's pending
// flags unconditionally. When the client later issues "idle", any pending
// category that matches its request is reported immediately. This is what
// lets a client run "status", see a stale value, and still be told that the
// player changed in the meantime.
//
// Delivery reports the pending categories that intersect the requested mask
// and then clears all pending flags.
package idle

import "strings"

// Mask is a set of event categories.
type Mask uint32

// Categories, in wire order. The bit position of each category is its index
// in the names table.
const (
	Database Mask = 1 << iota
	StoredPlaylist
	Playlist
	Player
	Mixer
	Output
	Options
)

// All matches every category, including ones added in the future.
const All Mask = ^Mask(0)

var names = [...]string{
	"database",
	"stored_playlist",
	"playlist",
	"player",
	"mixer",
	"output",
	"options",
}

// ParseMask returns the union of the named categories. Names are matched
// case-insensitively and unknown names are ignored. If nothing matched, the
// result is All: a request with no usable category subscribes to everything.
func ParseMask(args []string) Mask {
	var m Mask
	for _, arg := range args {
		for i, name := range names {
			if strings.EqualFold(arg, name) {
				m |= 1 << i
			}
		}
	}
	if m == 0 {
		return All
	}
	return m
}

// Each calls fn with the name of every known category in m, in bit order.
func (m Mask) Each(fn func(name string)) {
	for i, name := range names {
		if m&(1<<i) != 0 {
			fn(name)
		}
	}
}

// Strings returns the names of the categories in m.
func (m Mask) Strings() []string {
	var out []string
	m.Each(func(name string) { out = append(out, name) })
	return out
}
