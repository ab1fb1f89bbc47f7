package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
)

// --- Handler: GET /admin/rides?status=&passengerId=&driverId= ---

func (handler *BoardHTTPHandler) handleRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	query := r.URL.Query()
	filter := contracts.RideFilter{
		Status:      query.Get("status"),
		PassengerID: query.Get("passengerId"),
		DriverID:    query.Get("driverId"),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rides, err := handler.svc.ListRides(ctxWithTimeout, filter)
	if err != nil {
		if errors.Is(err, ride.ErrInvalidRequest) {
			handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
			return
		}
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to list rides", err)
		return
	}

	type resp struct {
		Count int                  `json:"count"`
		Rides []contracts.RideView `json:"rides"`
	}
	views := contracts.NewRideViews(rides)
	handler.jsonResponse(ctx, w, http.StatusOK, resp{Count: len(views), Rides: views})
}

// --- Handler: GET /admin/stats ---

func (handler *BoardHTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats, err := handler.svc.Stats(ctxWithTimeout)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, stats)
}
