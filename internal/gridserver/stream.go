package gridserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/latticeforge/gridlex/internal/session"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// StreamHandler upgrades a single authenticated connection into a decode
// loop: the client sends one frame per accepted token id, the server
// replies with the resulting allowed-tokens set. One connection serves
// exactly one session rather than fanning a message out to many
// subscribers - Guide cursors are inherently single-reader.
type StreamHandler struct {
	sessions   *session.Store
	grammars   *GrammarRegistry
	sessionTTL time.Duration
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewStreamHandler returns a StreamHandler. log may be nil.
func NewStreamHandler(sessions *session.Store, grammars *GrammarRegistry, sessionTTL time.Duration, log *zap.Logger) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{
		sessions:   sessions,
		grammars:   grammars,
		sessionTTL: sessionTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type streamFrame struct {
	SessionID string             `json:"session_id"`
	TokenID   vocabulary.TokenID `json:"token_id"`
}

type streamReply struct {
	AllowedTokens []vocabulary.TokenID `json:"allowed_tokens"`
	Finished      bool                 `json:"finished"`
	Error         string               `json:"error,omitempty"`
}

// ServeHTTP upgrades the connection and runs the decode loop until the
// client closes it or a session finishes.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("stream read ended", zap.Error(err))
			}
			return
		}

		reply := h.advance(r, frame)
		if err := conn.WriteJSON(reply); err != nil {
			h.log.Debug("stream write failed", zap.Error(err))
			return
		}
		if reply.Finished || reply.Error != "" {
			return
		}
	}
}

func (h *StreamHandler) advance(r *http.Request, frame streamFrame) streamReply {
	snap, err := h.sessions.Load(r.Context(), frame.SessionID)
	if err != nil {
		return streamReply{Error: err.Error()}
	}
	idx, ok := h.grammars.Get(snap.GrammarID)
	if !ok {
		return streamReply{Error: "grammar no longer registered"}
	}
	allowed, state, err := h.sessions.Advance(r.Context(), frame.SessionID, idx, frame.TokenID, h.sessionTTL)
	if err != nil {
		return streamReply{Error: err.Error()}
	}
	return streamReply{AllowedTokens: allowed, Finished: state == index.Terminal}
}
