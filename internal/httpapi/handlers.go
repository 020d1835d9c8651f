package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/inhouse-queue/internal/render"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

// Leaderboard reads ranked ledger rows for a scope.
type Leaderboard interface {
	LeaderboardRows(ctx context.Context, scope string) []ledger.Row
}

// Identify puts the X-Player-* caller on the request context and remembers
// their display name for the scope.
func Identify(names *identity.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := identity.FromHeaders(r.Header)
			if ok {
				names.Remember(chi.URLParam(r, "scope"), c.ID, c.Name)
				r = r.WithContext(identity.WithCaller(r.Context(), c))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CreateLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateLobbyRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := run(r, h, engine.Command{Type: engine.CmdCreateLobby, Title: req.Title})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res.Snapshot.View)
	}
}

func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Ensure(r.Context(), chi.URLParam(r, "scope"))
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := lb.Status(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st.Snapshot.View)
	}
}

func Join(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := run(r, h, engine.Command{Type: engine.CmdJoin})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.JoinResponse{Joined: res.Joined, Lobby: res.Snapshot.View})
	}
}

func AddPlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AddPlayerRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.PlayerID == "" {
			writeError(w, fmt.Errorf("%w: player_id is required", errBadBody))
			return
		}
		res, err := run(r, h, engine.Command{Type: engine.CmdAddPlayer, Target: req.PlayerID, TargetName: req.DisplayName})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.JoinResponse{Joined: res.Joined, Lobby: res.Snapshot.View})
	}
}

func DeclareWinner(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DeclareWinnerRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		team, err := engine.ParseTeam(req.Team)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := run(r, h, engine.Command{Type: engine.CmdDeclareWinner, Team: team})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Snapshot.View)
	}
}

// Command handles the bodiless commands.
func Command(h *hub.Hub, t engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := run(r, h, engine.Command{Type: t})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Snapshot.View)
	}
}

func GetLeaderboard(board Leaderboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := chi.URLParam(r, "scope")
		rows := board.LeaderboardRows(r.Context(), scope)

		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, render.Leaderboard(rows)+"\n")
			return
		}
		writeJSON(w, http.StatusOK, types.LeaderboardResponse{Scope: scope, Rows: render.Rows(rows)})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// run sends cmd, stamped with the caller, to the scope's lobby actor.
func run(r *http.Request, h *hub.Hub, cmd engine.Command) (lobby.Result, error) {
	c, ok := identity.CallerFrom(r.Context())
	if !ok {
		return lobby.Result{}, errMissingPlayer
	}
	cmd.Actor = c.Actor

	lb, err := h.Ensure(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		return lobby.Result{}, err
	}
	return lb.Do(r.Context(), cmd)
}

// decode reads an optional JSON body; an empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadBody, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
