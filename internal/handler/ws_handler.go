package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/service"
	ws "github.com/stemsi/exstem-selftest/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session screens over WebSocket.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/learner/sessions/:session_id/stream?token=...
// Pushes the rendered screen after every transition, countdown ticks
// included, and accepts intents from the client.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	live := middleware.GetLiveSession(c)
	if claims == nil || live == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("learner_id", claims.UserID).
		Str("session_id", live.ID.String()).
		Logger()

	updates, unsubscribe := live.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := h.sessionService.Renderer()
	st, err := live.Snapshot(ctx)
	if err != nil {
		conn.WriteError("session closed")
		return
	}
	if err := conn.WriteState(renderer.Render(st)); err != nil {
		return
	}

	wsLog.Info().Msg("Learner connected")

	// Writer: forward every published snapshot until the session closes or
	// the reader goes away.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-updates:
				if !ok {
					conn.WriteError("session closed")
					conn.Close()
					return
				}
				if err := conn.WriteState(renderer.Render(st)); err != nil {
					wsLog.Debug().Err(err).Msg("State push failed")
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var msg ws.RequestPayload
		if err := conn.ReadRequest(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionIntent:
			h.handleIntent(ctx, conn, live, claims.UserID, &msg)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// handleIntent dispatches one intent. The resulting screen reaches the client
// through the subscription; only snapshot requests are answered directly.
func (h *WSHandler) handleIntent(ctx context.Context, conn *ws.Conn, live *service.LiveSession, learnerID int, msg *ws.RequestPayload) {
	in, err := decodeIntent(&msg.IntentRequest)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	st, err := h.sessionService.Dispatch(ctx, live.ID, learnerID, in)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			conn.WriteError("session closed")
			return
		}
		h.log.Error().Err(err).Str("session_id", live.ID.String()).Msg("Dispatch failed")
		conn.WriteError("dispatch failed")
		return
	}

	if in == nil {
		conn.WriteState(h.sessionService.Renderer().Render(st))
	}
}
