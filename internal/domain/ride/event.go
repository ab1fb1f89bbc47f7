package ride

import (
	"errors"
	"time"
)

// Event is one committed change of a ride, carrying the post-change snapshot.
type Event struct {
	Type      EventType
	OldStatus Status // empty for RIDE_REQUESTED
	Ride      Ride
	CreatedAt time.Time
}

var ErrEventRideRequired = errors.New("event ride snapshot is required")

// NewEvent constructs a change event from a committed ride snapshot.
func NewEvent(eventType EventType, oldStatus Status, snapshot *Ride) (*Event, error) {
	if !eventType.Valid() {
		return nil, ErrInvalidEventType
	}
	if snapshot == nil || snapshot.ID == "" {
		return nil, ErrEventRideRequired
	}

	return &Event{
		Type:      eventType,
		OldStatus: oldStatus,
		Ride:      *snapshot.Clone(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventFor picks the event type describing a transition into next.
func EventFor(next Status) EventType {
	switch next {
	case StatusPending:
		return EventRideRequested
	case StatusAccepted:
		return EventRideAccepted
	case StatusCancelled:
		return EventRideCancelled
	default:
		return EventStatusChanged
	}
}
