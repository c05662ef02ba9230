// ABOUTME: Notification set: user markers plus loop-point and end-of-stream triggers
// ABOUTME: All-or-nothing rebuild registered with the device in one call
package soundbuffer

import (
	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// reservedTriggers counts the loop-point, end-of-stream and cancel inputs
// that follow the user markers in every wait
const reservedTriggers = 3

// MaxMarkers is the largest number of user markers a buffer accepts
const MaxMarkers = device.MaxWaitObjects - reservedTriggers

// notificationSet is the trigger array registered against one buffer
type notificationSet struct {
	offsets     []int
	markers     []*device.Event
	loopPoint   *device.Event
	endOfStream *device.Event
}

func newNotificationSet(offsets []int) *notificationSet {
	s := &notificationSet{
		offsets:     append([]int(nil), offsets...),
		markers:     make([]*device.Event, len(offsets)),
		loopPoint:   device.NewEvent(false),
		endOfStream: device.NewEvent(true),
	}
	for i := range s.markers {
		s.markers[i] = device.NewEvent(false)
	}
	return s
}

// positions lists the offset-bound triggers in registration order
func (s *notificationSet) positions(loopEnd int) []device.PositionNotify {
	notify := make([]device.PositionNotify, 0, len(s.markers)+2)
	for i, e := range s.markers {
		notify = append(notify, device.PositionNotify{Offset: s.offsets[i], Event: e})
	}
	notify = append(notify,
		device.PositionNotify{Offset: loopEnd, Event: s.loopPoint},
		device.PositionNotify{Offset: device.OffsetStop, Event: s.endOfStream},
	)
	return notify
}

// waitSet returns the wait inputs: markers, loop point, end of stream, cancel
func (s *notificationSet) waitSet(cancel *device.Event) []*device.Event {
	events := make([]*device.Event, 0, len(s.markers)+reservedTriggers)
	events = append(events, s.markers...)
	return append(events, s.loopPoint, s.endOfStream, cancel)
}

func (s *notificationSet) close() {
	if s == nil {
		return
	}
	for _, e := range s.markers {
		e.Close()
	}
	s.loopPoint.Close()
	s.endOfStream.Close()
}

// rebuildLocked replaces the notification set and commits loopEnd. On any
// failure the previous set and loop end stay in effect.
func (b *Buffer) rebuildLocked(offsets []int, loopEnd int) error {
	if len(offsets) > MaxMarkers {
		return rangeError("%d markers exceed the limit of %d", len(offsets), MaxMarkers)
	}
	for _, off := range offsets {
		if off < 0 || off > b.size {
			return rangeError("marker offset %d outside buffer of %d bytes", off, b.size)
		}
	}
	if loopEnd < 0 || loopEnd > b.size {
		return rangeError("loop end %d outside buffer of %d bytes", loopEnd, b.size)
	}

	set := newNotificationSet(offsets)
	if err := b.hw.SetNotificationPositions(set.positions(loopEnd)); err != nil {
		set.close()
		return deviceError("set notification positions", err)
	}

	old := b.notify
	b.notify = set
	b.loopEnd = loopEnd
	old.close()

	// wake a wait blocked on the old triggers
	b.cancel.Pulse()
	return nil
}
