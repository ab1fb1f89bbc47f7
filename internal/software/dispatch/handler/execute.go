package handler

import (
	"context"
	"fmt"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
)

// execute maps a command onto the dispatch service.
func (handler *CommandHandler) execute(ctx context.Context, cmd contracts.Command) contracts.Reply {
	svc := handler.service

	switch cmd.Type {
	case contracts.CommandRequestRide:
		r, err := svc.RequestRide(ctx, cmd.PassengerID, cmd.Pickup, cmd.Destination)
		return rideReply(cmd, r, err)

	case contracts.CommandAcceptRide:
		r, err := svc.AcceptRide(ctx, cmd.DriverID, cmd.RideID)
		return rideReply(cmd, r, err)

	case contracts.CommandUpdateStatus:
		status, err := ride.ParseStatus(cmd.Status)
		if err != nil {
			return rideReply(cmd, nil, fmt.Errorf("%w: unknown status %q", ride.ErrInvalidRequest, cmd.Status))
		}
		r, err := svc.UpdateRideStatus(ctx, cmd.RideID, status, cmd.Message)
		return rideReply(cmd, r, err)

	case contracts.CommandCancelRide:
		r, err := svc.CancelRide(ctx, cmd.RideID, cmd.Reason)
		return rideReply(cmd, r, err)

	case contracts.CommandListRides:
		var filter contracts.RideFilter
		if cmd.Filter != nil {
			filter = *cmd.Filter
		}
		rides, err := svc.ListRides(ctx, filter)
		reply := rideReply(cmd, nil, err)
		if err == nil {
			reply.Rides = contracts.NewRideViews(rides)
		}
		return reply

	case contracts.CommandGetStats:
		stats, err := svc.Stats(ctx)
		reply := rideReply(cmd, nil, err)
		if err == nil {
			reply.Stats = &stats
		}
		return reply

	case contracts.CommandRegisterDriver:
		var profile contracts.DriverProfile
		if cmd.DriverProfile != nil {
			profile = *cmd.DriverProfile
		}
		_, err := svc.RegisterDriver(ctx, cmd.DriverID, profile.ToProfile())
		return rideReply(cmd, nil, err)

	case contracts.CommandRegisterPassenger:
		var profile contracts.PassengerProfile
		if cmd.PassengerProfile != nil {
			profile = *cmd.PassengerProfile
		}
		_, err := svc.RegisterPassenger(ctx, cmd.PassengerID, profile.Name, profile.Phone)
		return rideReply(cmd, nil, err)

	default:
		return rideReply(cmd, nil, fmt.Errorf("%w: unsupported command %s", ride.ErrInvalidRequest, cmd.Type))
	}
}

// rideReply builds a reply. A ride returned alongside an error (a committed
// change whose notification failed) is still included.
func rideReply(cmd contracts.Command, r *ride.Ride, err error) contracts.Reply {
	reply := contracts.Reply{CommandID: cmd.CommandID, OK: err == nil}
	if err != nil {
		reply.Code = contracts.CodeOf(err)
		reply.Error = err.Error()
	}
	if r != nil {
		view := contracts.NewRideView(r)
		reply.Ride = &view
	}
	return reply
}
