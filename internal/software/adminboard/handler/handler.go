package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BoardHTTPHandler serves the read-only monitoring board of the engine.
type BoardHTTPHandler struct {
	svc        ports.DispatchService
	logger     *logger.Logger
	auth       *jwt.Manager
	feedBuffer int
	closing    chan struct{}
	closeOnce  sync.Once
}

// NewBoardHTTPHandler wires the board around the dispatch service. A nil auth
// manager leaves /admin and /ws open.
func NewBoardHTTPHandler(svc ports.DispatchService, logger *logger.Logger, auth *jwt.Manager) *BoardHTTPHandler {
	return &BoardHTTPHandler{svc: svc, logger: logger, auth: auth, feedBuffer: 64, closing: make(chan struct{})}
}

// Close ends every open feed stream. Hijacked connections are not tracked by
// http.Server.Shutdown, so the engine registers this as a shutdown hook.
func (handler *BoardHTTPHandler) Close() {
	handler.closeOnce.Do(func() { close(handler.closing) })
}

// RegisterRoutes mounts the board endpoints on the provided mux.
func (handler *BoardHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	admin := jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)

	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /admin/rides", admin(handler.handleRides))
	mux.HandleFunc("GET /admin/stats", admin(handler.handleStats))
	mux.HandleFunc("GET /ws/rides", admin(handler.handleFeed))
}

// Handler returns the routed mux wrapped in request metrics.
func (handler *BoardHTTPHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return handler.observe(mux)
}

// ----- general helpers -----

// jsonResponse encodes data and writes it with the given status.
func (handler *BoardHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error body and logs the failure.
func (handler *BoardHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *BoardHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
