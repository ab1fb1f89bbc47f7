package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ride-dispatch/internal/domain/ride"
)

// CommandType selects the Dispatch Engine operation a Command invokes.
type CommandType string

const (
	CommandRequestRide       CommandType = "REQUEST_RIDE"
	CommandAcceptRide        CommandType = "ACCEPT_RIDE"
	CommandUpdateStatus      CommandType = "UPDATE_STATUS"
	CommandCancelRide        CommandType = "CANCEL_RIDE"
	CommandListRides         CommandType = "LIST_RIDES"
	CommandGetStats          CommandType = "GET_STATS"
	CommandRegisterDriver    CommandType = "REGISTER_DRIVER"
	CommandRegisterPassenger CommandType = "REGISTER_PASSENGER"
)

// Valid reports whether commandType is one of the allowed command type constants.
func (commandType CommandType) Valid() bool {
	switch commandType {
	case CommandRequestRide, CommandAcceptRide, CommandUpdateStatus, CommandCancelRide,
		CommandListRides, CommandGetStats, CommandRegisterDriver, CommandRegisterPassenger:
		return true
	default:
		return false
	}
}

// RideFilter narrows LIST_RIDES. Empty fields match everything.
type RideFilter struct {
	Status      string `json:"status,omitempty"`
	PassengerID string `json:"passengerId,omitempty"`
	DriverID    string `json:"driverId,omitempty"`
}

// Command is published by actors on QueueCommands.
// Routing of the reply: the engine publishes a Reply on ReplyTo.
type Command struct {
	CommandID string      `json:"commandId"`
	Type      CommandType `json:"type"`
	ReplyTo   string      `json:"replyTo,omitempty"`
	SentAt    time.Time   `json:"sentAt"`

	PassengerID string `json:"passengerId,omitempty"`
	DriverID    string `json:"driverId,omitempty"`
	RideID      string `json:"rideId,omitempty"`

	Pickup      string `json:"pickup,omitempty"`
	Destination string `json:"destination,omitempty"`

	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`

	Filter           *RideFilter       `json:"filter,omitempty"`
	DriverProfile    *DriverProfile    `json:"driverProfile,omitempty"`
	PassengerProfile *PassengerProfile `json:"passengerProfile,omitempty"`
}

var ErrMalformedCommand = errors.New("malformed command")

// Validate checks the envelope. Operation arguments are validated by the engine.
func (cmd *Command) Validate() error {
	if strings.TrimSpace(cmd.CommandID) == "" {
		return fmt.Errorf("%w: commandId is required", ErrMalformedCommand)
	}
	if !cmd.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, cmd.Type)
	}
	return nil
}

// ErrorCode is the wire form of the dispatch error taxonomy.
type ErrorCode string

const (
	CodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeNotClaimable      ErrorCode = "NOT_CLAIMABLE"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	CodeInternal          ErrorCode = "INTERNAL"
)

// ErrBrokerUnavailable reports that a publish or consume could not reach the broker.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// CodeOf classifies err into an ErrorCode.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ride.ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ride.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ride.ErrNotClaimable):
		return CodeNotClaimable
	case errors.Is(err, ride.ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrBrokerUnavailable):
		return CodeBrokerUnavailable
	default:
		return CodeInternal
	}
}

// Err maps a code back to its sentinel, wrapping the remote message.
func (code ErrorCode) Err(msg string) error {
	var base error
	switch code {
	case "":
		return nil
	case CodeInvalidRequest:
		base = ride.ErrInvalidRequest
	case CodeNotFound:
		base = ride.ErrNotFound
	case CodeNotClaimable:
		base = ride.ErrNotClaimable
	case CodeInvalidState:
		base = ride.ErrInvalidState
	case CodeBrokerUnavailable:
		base = ErrBrokerUnavailable
	default:
		return fmt.Errorf("dispatch: %s", msg)
	}
	if msg == "" || msg == base.Error() {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}

// Stats summarizes the ride table.
type Stats struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	Accepted         int     `json:"accepted"`
	DriverArrived    int     `json:"driverArrived"`
	InProgress       int     `json:"inProgress"`
	Completed        int     `json:"completed"`
	Cancelled        int     `json:"cancelled"`
	TotalRevenue     float64 `json:"totalRevenue"`
	CompletionRate   float64 `json:"completionRate"` // percent
	Drivers          int     `json:"drivers"`
	AvailableDrivers int     `json:"availableDrivers"`
	Passengers       int     `json:"passengers"`
}

// Reply answers one Command.
type Reply struct {
	CommandID string     `json:"commandId"`
	OK        bool       `json:"ok"`
	Code      ErrorCode  `json:"code,omitempty"`
	Error     string     `json:"error,omitempty"`
	Ride      *RideView  `json:"ride,omitempty"`
	Rides     []RideView `json:"rides,omitempty"`
	Stats     *Stats     `json:"stats,omitempty"`
}

// Err returns the error carried by the reply, nil when OK.
func (reply *Reply) Err() error {
	if reply.OK {
		return nil
	}
	code := reply.Code
	if code == "" {
		code = CodeInternal
	}
	return code.Err(reply.Error)
}
