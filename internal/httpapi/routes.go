package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/internal/logging"
	"github.com/DoyleJ11/inhouse-queue/internal/ws"
)

func SetupRoutes(h *hub.Hub, board Leaderboard, names *identity.Directory, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Requests(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)

	r.Route("/scopes/{scope}", func(r chi.Router) {
		r.Use(Identify(names))

		r.Post("/lobby", CreateLobby(h))
		r.Get("/lobby", GetLobby(h))
		r.Delete("/lobby", Command(h, engine.CmdCancelLobby))
		r.Post("/lobby/join", Join(h))
		r.Post("/lobby/players", AddPlayer(h))
		r.Post("/lobby/start", Command(h, engine.CmdStartMatch))
		r.Post("/lobby/winner", DeclareWinner(h))
		r.Post("/lobby/draw", Command(h, engine.CmdDeclareDraw))
		r.Post("/lobby/cancel", Command(h, engine.CmdCancelMatch))
		r.Get("/leaderboard", GetLeaderboard(board))
		r.Get("/ws", ws.Handler(h, log))
	})
	return r
}
