package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
)

var ErrStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Scope string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Scope string
	Reply chan *lobby.Lobby
}

type ShutdownHub struct{}

// Hub owns one lobby actor per scope.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     lobby.Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context, cfg lobby.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Repo == nil {
		cfg.Repo = lobby.NewMemoryRepository()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.lobbies[msg.Scope] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Scope]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Scope, h.cfg)
				h.lobbies[msg.Scope] = lb
				h.log.Debug("lobby actor started", zap.String("scope", msg.Scope))
				msg.Reply <- lb

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		default:
		}
	}
	clear(h.lobbies)
	h.cancel()
}

// Ensure returns the scope's lobby actor, starting one if needed.
func (h *Hub) Ensure(ctx context.Context, scope string) (*lobby.Lobby, error) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg {
		return EnsureLobby{Scope: scope, Reply: reply}
	})
}

// Get returns the scope's lobby actor or nil.
func (h *Hub) Get(ctx context.Context, scope string) (*lobby.Lobby, error) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg {
		return GetLobby{Scope: scope, Reply: reply}
	})
}

func (h *Hub) ask(ctx context.Context, build func(chan *lobby.Lobby) HubMsg) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- build(reply):
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
}
