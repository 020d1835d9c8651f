package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/inhouse-queue/internal/types"
)

const (
	writeTimeout     = 3 * time.Second
	commandTimeout   = 5 * time.Second
	subscribeTimeout = time.Second
)

var (
	errUnknownType   = errors.New("unknown type")
	errMissingPlayer = errors.New("missing X-Player-ID")
	errNotJoined     = errors.New("lobby is not accepting players")
)

// Handler streams a scope's lobby snapshots and accepts commands. Callers
// without a player id may watch but not act.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		scope := chi.URLParam(r, "scope")
		lb, err := h.Ensure(r.Context(), scope)
		if err != nil {
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}
		caller, hasCaller := identity.CallerFrom(r.Context())

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		clog := log.With(zap.String("scope", scope), zap.String("client", clientID))

		if !subscribe(r.Context(), lb, clientID, out) {
			conn.Close(websocket.StatusTryAgainLater, "lobby unavailable")
			return
		}
		defer leave(lb, clientID)
		clog.Debug("client subscribed")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				view := snap.View
				send(writeCtx, conn, types.ServerMessage{Type: "LobbySnapshot", Version: snap.Version, Lobby: &view})
			}
			// Dropped for lagging or the lobby stopped.
			if writeCtx.Err() == nil {
				conn.Close(websocket.StatusTryAgainLater, "lobby stream ended")
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendError(r.Context(), conn, errors.New("bad json"))
				continue
			}
			if !hasCaller {
				sendError(r.Context(), conn, errMissingPlayer)
				continue
			}

			cmd, err := toEngineCommand(cm, caller.Actor)
			if err != nil {
				sendError(r.Context(), conn, err)
				continue
			}

			ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
			res, err := lb.Do(ctx, cmd)
			cancel()
			if err == nil && cmd.Type == engine.CmdJoin && !res.Joined {
				err = errNotJoined
			}
			if err != nil {
				sendError(r.Context(), conn, err)
			}
		}
	}
}

// subscribe registers out with the actor. It gives up when the actor has
// stopped, the request ends or the inbox stays full.
func subscribe(ctx context.Context, lb *lobby.Lobby, clientID string, out chan lobby.Snapshot) bool {
	select {
	case <-lb.Done():
		return false
	default:
	}
	select {
	case lb.Inbox() <- lobby.Subscribe{ClientID: clientID, Outbox: out}:
		return true
	case <-lb.Done():
		return false
	case <-ctx.Done():
		return false
	case <-time.After(subscribeTimeout):
		return false
	}
}

func leave(lb *lobby.Lobby, clientID string) {
	select {
	case lb.Inbox() <- lobby.Unsubscribe{ClientID: clientID}:
	case <-lb.Done():
	case <-time.After(subscribeTimeout):
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func sendError(ctx context.Context, conn *websocket.Conn, err error) {
	send(ctx, conn, types.ServerMessage{Type: "Error", Error: err.Error()})
}

func toEngineCommand(m types.ClientMessage, actor engine.Actor) (engine.Command, error) {
	cmd := engine.Command{Actor: actor}
	switch m.Type {
	case "Join":
		cmd.Type = engine.CmdJoin
	case "Start":
		cmd.Type = engine.CmdStartMatch
	case "DeclareWinner":
		team, err := engine.ParseTeam(m.Team)
		if err != nil {
			return engine.Command{}, err
		}
		cmd.Type = engine.CmdDeclareWinner
		cmd.Team = team
	case "DeclareDraw":
		cmd.Type = engine.CmdDeclareDraw
	case "CancelMatch":
		cmd.Type = engine.CmdCancelMatch
	case "CancelLobby":
		cmd.Type = engine.CmdCancelLobby
	default:
		return engine.Command{}, errUnknownType
	}
	return cmd, nil
}
