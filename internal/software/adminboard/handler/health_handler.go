package handler

import (
	"net/http"
	"time"
)

// ----- Handler: GET /health -----

func (handler *BoardHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status string    `json:"status"`
		Time   time.Time `json:"time"`
	}
	handler.jsonResponse(r.Context(), w, http.StatusOK, resp{Status: "ok", Time: time.Now().UTC()})
}
