package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NotificationType is the wire tag of a notification.
type NotificationType string

const (
	NotificationRideAccepted NotificationType = "RIDE_ACCEPTED"
	NotificationStatusUpdate NotificationType = "STATUS_UPDATE"
	NotificationGeneric      NotificationType = "GENERIC"
)

var ErrNotificationDecode = errors.New("notification decode failed")

// Notification is the closed set of messages delivered on per-identity queues:
// *RideAccepted, *StatusUpdate and *Generic.
type Notification interface {
	Kind() NotificationType
	RideRef() string
	sealed()
}

// RideAccepted is sent to the passenger when a driver claims the ride.
type RideAccepted struct {
	RideID           string    `json:"rideId"`
	DriverID         string    `json:"driverId"`
	Message          string    `json:"message"`
	EstimatedArrival string    `json:"estimatedArrival"`
	Timestamp        time.Time `json:"timestamp"`
}

// StatusUpdate is sent to both participants on every later transition.
type StatusUpdate struct {
	RideID    string    `json:"rideId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Generic carries any other informational text.
type Generic struct {
	Type      string    `json:"-"`
	RideID    string    `json:"rideId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (*RideAccepted) Kind() NotificationType { return NotificationRideAccepted }
func (*StatusUpdate) Kind() NotificationType { return NotificationStatusUpdate }
func (*Generic) Kind() NotificationType      { return NotificationGeneric }

func (n *RideAccepted) RideRef() string { return n.RideID }
func (n *StatusUpdate) RideRef() string { return n.RideID }
func (n *Generic) RideRef() string      { return n.RideID }

func (*RideAccepted) sealed() {}
func (*StatusUpdate) sealed() {}
func (*Generic) sealed()      {}

// MarshalJSON adds the "type" tag.
func (n *RideAccepted) MarshalJSON() ([]byte, error) {
	type plain RideAccepted
	return json.Marshal(struct {
		Type NotificationType `json:"type"`
		*plain
	}{NotificationRideAccepted, (*plain)(n)})
}

// MarshalJSON adds the "type" tag.
func (n *StatusUpdate) MarshalJSON() ([]byte, error) {
	type plain StatusUpdate
	return json.Marshal(struct {
		Type NotificationType `json:"type"`
		*plain
	}{NotificationStatusUpdate, (*plain)(n)})
}

// MarshalJSON adds the "type" tag; unknown tags read by DecodeNotification are preserved.
func (n *Generic) MarshalJSON() ([]byte, error) {
	type plain Generic
	tag := n.Type
	if tag == "" {
		tag = string(NotificationGeneric)
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		*plain
	}{tag, (*plain)(n)})
}

// DecodeNotification reads the "type" tag and returns the matching variant.
// Unknown or missing tags decode as *Generic.
func DecodeNotification(body []byte) (Notification, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotificationDecode, err)
	}

	var n Notification
	switch NotificationType(head.Type) {
	case NotificationRideAccepted:
		n = &RideAccepted{}
	case NotificationStatusUpdate:
		n = &StatusUpdate{}
	default:
		n = &Generic{Type: head.Type}
	}
	if err := json.Unmarshal(body, n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotificationDecode, err)
	}
	return n, nil
}
