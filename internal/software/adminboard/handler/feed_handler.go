package handler

import (
	"net/http"
	"time"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/websocket"
)

// Feed frames.
const (
	FrameSnapshot  = "snapshot"
	FrameRideEvent = "ride_event"
)

type snapshotFrame struct {
	Type  string               `json:"type"`
	Rides []contracts.RideView `json:"rides"`
	Stats contracts.Stats      `json:"stats"`
}

type rideEventFrame struct {
	Type      string             `json:"type"`
	Event     string             `json:"event"`
	OldStatus string             `json:"oldStatus,omitempty"`
	Ride      contracts.RideView `json:"ride"`
	At        time.Time          `json:"at"`
}

// --- Handler: GET /ws/rides ---
// Sends one snapshot frame, then one ride_event frame per committed change.

func (handler *BoardHTTPHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	conn, err := websocket.Upgrade(w, r)
	if err != nil {
		handler.logger.Error(ctx, "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	// Subscribe before the snapshot so no change falls between the two.
	events, stop := handler.svc.Watch(handler.feedBuffer)
	defer stop()

	rides, err := handler.svc.ListRides(ctx, contracts.RideFilter{})
	if err == nil {
		var stats contracts.Stats
		stats, err = handler.svc.Stats(ctx)
		if err == nil {
			err = conn.WriteJSON(snapshotFrame{Type: FrameSnapshot, Rides: contracts.NewRideViews(rides), Stats: stats})
		}
	}
	if err != nil {
		handler.logger.Error(ctx, "ws_snapshot_failed", "Failed to send ride snapshot", err, nil)
		conn.Close(websocket.CloseInternalServerErr, "snapshot failed")
		return
	}

	handler.logger.Info(ctx, "ws_connected", "Ride feed subscriber connected", nil)
	for {
		select {
		case <-conn.Done():
			handler.logger.Info(ctx, "ws_connection_closed", "Ride feed subscriber left", nil)
			return
		case <-handler.closing:
			conn.Close(websocket.CloseGoingAway, "server shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.CloseGoingAway, "feed closed")
				return
			}
			frame := rideEventFrame{
				Type:      FrameRideEvent,
				Event:     ev.Type.String(),
				OldStatus: ev.OldStatus.String(),
				Ride:      contracts.NewRideView(&ev.Ride),
				At:        ev.CreatedAt,
			}
			if err := conn.WriteJSON(frame); err != nil {
				handler.logger.Error(ctx, "ws_write_failed", "Failed to push ride event", err, nil)
				conn.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		}
	}
}
