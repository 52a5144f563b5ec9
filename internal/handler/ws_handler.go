package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/service"
	ws "github.com/examina/examina-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams live session state over WebSocket: every countdown tick
// pushes a snapshot, and exam intents can be sent inline instead of HTTP.
type WSHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService: examService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/exam/stream?token=...
// Upgrades to WebSocket for live countdown and state streaming.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().Str("user_id", userID.String()).Logger()
	wsLog.Info().Msg("Client connected")

	// Writes come from both the read loop and the broadcast ticker.
	var writeMu sync.Mutex
	writeState := func(ctx context.Context) {
		snap, err := h.examService.State(ctx, userID)
		if err != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := ws.WriteState(conn, snap); err != nil {
			wsLog.Debug().Err(err).Msg("State write failed")
		}
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeState(context.Background())
			}
		}
	}()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx := c.Request.Context()
		var actionErr error
		switch msg.Action {
		case ws.ActionPing:
			writeMu.Lock()
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			writeMu.Unlock()
			continue
		case ws.ActionState:
			// Snapshot written below.
		case ws.ActionAnswer:
			_, actionErr = h.examService.Answer(ctx, userID, &model.SubmitAnswerRequest{OptionIDs: msg.OptionIDs})
		case ws.ActionNext:
			_, actionErr = h.examService.Next(ctx, userID)
		case ws.ActionPrevious:
			_, actionErr = h.examService.Previous(ctx, userID)
		case ws.ActionFinish:
			_, actionErr = h.examService.Finish(ctx, userID)
		default:
			writeMu.Lock()
			_ = ws.WriteError(conn, "UNKNOWN_ACTION", "unrecognized action")
			writeMu.Unlock()
			continue
		}

		if actionErr != nil {
			writeMu.Lock()
			_ = ws.WriteError(conn, "ACTION_FAILED", actionErr.Error())
			writeMu.Unlock()
			continue
		}
		writeState(ctx)
	}
}
