package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/middleware"
	"github.com/NgouanKoffi/fullmargin-live/internal/sse"
)

// EventsHandler streams session status events for one community over SSE.
// It is a push complement to the client's polling directory store; clients
// that cannot hold the stream open still converge via polling.
type EventsHandler struct {
	broker *sse.Broker
}

func NewEventsHandler(broker *sse.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

// GET /lives/events/{communityId}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	communityID := chi.URLParam(r, "communityId")
	if communityID == "" {
		writeError(w, apperrors.MissingRequired("communityId"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(communityID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("communityId", communityID).
		Str("accountId", account.ID).
		Msg("sse connection established")

	h.sendEvent(w, flusher, "connected", map[string]any{
		"communityId": communityID,
	})

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-client.Done:
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case event := <-client.Events:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
