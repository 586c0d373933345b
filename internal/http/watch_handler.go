package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Oleksandr1212/test-day-second/internal/application"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 30 * time.Second
)

type bookingWatchService interface {
	Watch(ctx context.Context, principal application.Principal, roomID string) (*application.BookingSubscription, error)
}

// WatchHandler streams live booking snapshots for a room over a websocket.
type WatchHandler struct {
	service   bookingWatchService
	responder responder
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func NewWatchHandler(service bookingWatchService, logger *slog.Logger) *WatchHandler {
	base := defaultLogger(logger)
	return &WatchHandler{
		service:   service,
		responder: newResponder(base),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: base,
	}
}

func (h *WatchHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WatchHandler", operation, attrs...)
}

// Watch handles GET /rooms/{id}/bookings/watch. Authorization runs before
// the upgrade so rejected clients get a regular HTTP error response.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Watch", "principal", principal.Email, "room_id", roomID)

	sub, err := h.service.Watch(r.Context(), principal, roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "watch subscription rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	defer sub.Cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger.InfoContext(r.Context(), "watch stream opened")

	// The read loop only drains control frames and client close messages.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(watchPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case snapshot, open := <-sub.Snapshots():
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(watchWriteTimeout))
				logger.InfoContext(r.Context(), "watch stream closed by server")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(watchEvent{Bookings: toBookingDTOs(snapshot)}); err != nil {
				logger.ErrorContext(r.Context(), "failed to write snapshot", "error", err)
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteTimeout)); err != nil {
				logger.ErrorContext(r.Context(), "failed to ping watcher", "error", err)
				return
			}
		case <-readerDone:
			logger.InfoContext(r.Context(), "watch stream closed by client")
			return
		case <-r.Context().Done():
			return
		}
	}
}

type watchEvent struct {
	Bookings []bookingDTO `json:"bookings"`
}
