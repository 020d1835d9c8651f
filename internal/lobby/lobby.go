package lobby

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

var ErrClosed = errors.New("lobby actor stopped")

// Ledger is the part of the skill ledger a lobby drives.
type Ledger interface {
	EnsureRecords(ctx context.Context, scope string, playerIDs []string, names ledger.NameResolver) error
	RecordMatch(ctx context.Context, scope string, winners, losers []string, delta int, names ledger.NameResolver) error
	RecordDraw(ctx context.Context, scope string, teamA, teamB []string, names ledger.NameResolver) error
	PointsSnapshot(ctx context.Context, scope string) ledger.Points
}

// NameRecorder is implemented by name resolvers that also accept names
// reported with a command.
type NameRecorder interface {
	Remember(scope, playerID, name string)
}

// Config is shared by every lobby a hub creates.
type Config struct {
	Repo   Repository
	Ledger Ledger
	Names  ledger.NameResolver
	Rules  engine.Rules
	Log    *zap.Logger
	NewID  func() string
}

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Ctx   context.Context
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan Status
}

func (GetState) isLobbyMsg() {}

// Snapshot is what subscribers receive after every change. Active is false
// when the scope has no session.
type Snapshot struct {
	Version int
	Active  bool
	View    types.LobbyView
}

type Status struct {
	Snapshot   Snapshot
	NumClients int
	State      engine.State
}

// Result answers a FromClient message. Joined only matters for Join, which
// reports a closed lobby as not joined instead of an error.
type Result struct {
	Snapshot Snapshot
	Joined   bool
	Err      error
}

// Lobby serializes every command for one scope through a single goroutine.
type Lobby struct {
	scope   string
	inbox   chan Msg
	repo    Repository
	ledger  Ledger
	names   ledger.NameResolver
	rules   engine.Rules
	log     *zap.Logger
	newID   func() string
	version int
	note    string
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, scope string, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	repo := cfg.Repo
	if repo == nil {
		repo = NewMemoryRepository()
	}

	l := &Lobby{
		scope:   scope,
		inbox:   make(chan Msg, 64), // Small buffer
		repo:    repo,
		ledger:  cfg.Ledger,
		names:   cfg.Names,
		rules:   cfg.Rules,
		log:     log.With(zap.String("scope", scope)),
		newID:   newID,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register client + send current snapshot immediately
				select {
				case msg.Outbox <- l.current(l.ctx):
					l.clients[msg.ClientID] = msg.Outbox
				default:
					close(msg.Outbox)
				}

			case Unsubscribe:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				ctx := msg.Ctx
				if ctx == nil {
					ctx = l.ctx
				}
				msg.Reply <- l.handle(ctx, msg.Cmd)

			case GetState:
				s, _ := l.repo.Get(l.scope)
				msg.Reply <- Status{
					Snapshot:   l.current(l.ctx),
					NumClients: len(l.clients),
					State:      s,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handle(ctx context.Context, cmd engine.Command) Result {
	current, _ := l.repo.Get(l.scope)

	switch cmd.Type {
	case engine.CmdCreateLobby:
		cmd.LobbyID = l.newID()
		cmd.Rules = l.rules
	case engine.CmdStartMatch:
		if current.Phase == engine.PhaseOpen {
			cmd.Points = l.ledger.PointsSnapshot(ctx, l.scope)
		}
	}

	events, next, err := engine.Apply(current, cmd)
	if err != nil {
		if cmd.Type == engine.CmdJoin && errors.Is(err, engine.ErrNotOpen) {
			return Result{Snapshot: l.current(ctx), Joined: false}
		}
		l.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("actor", cmd.Actor.ID),
			zap.Error(err))
		return Result{Err: err}
	}

	if cmd.Type == engine.CmdAddPlayer && cmd.TargetName != "" {
		if rec, ok := l.names.(NameRecorder); ok {
			rec.Remember(l.scope, cmd.Target, cmd.TargetName)
		}
	}

	if len(events) == 0 {
		// Duplicate join: nothing changed.
		return Result{Snapshot: l.current(ctx), Joined: true}
	}

	if err := l.applyLedger(ctx, events); err != nil {
		l.log.Error("ledger update failed, lobby unchanged",
			zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Err: err}
	}

	l.version++
	var snap Snapshot
	if engine.ContainsEvent(events, engine.EvtLobbyCancelled) {
		l.repo.Remove(l.scope)
		l.note = ""
		view := l.render(ctx, current, noteDiscarded)
		view.Phase = phaseDiscard
		snap = Snapshot{Version: l.version, Active: false, View: view}
	} else {
		l.repo.Put(l.scope, next)
		l.note = l.noteFor(ctx, next, events)
		snap = Snapshot{Version: l.version, Active: true, View: l.render(ctx, next, l.note)}
	}

	l.log.Info("lobby updated",
		zap.String("cmd", string(cmd.Type)),
		zap.String("actor", cmd.Actor.ID),
		zap.String("lobby", next.ID),
		zap.String("phase", string(next.Phase)),
		zap.Int("version", l.version))

	l.broadcast(snap)
	return Result{Snapshot: snap, Joined: cmd.Type == engine.CmdJoin || cmd.Type == engine.CmdAddPlayer}
}

// applyLedger runs the ledger side of events. Roster upserts are best
// effort; match results must land before the lobby may finish.
func (l *Lobby) applyLedger(ctx context.Context, events []engine.Event) error {
	for _, e := range events {
		switch e.Type {
		case engine.EvtLobbyCreated, engine.EvtPlayerJoined:
			if err := l.ledger.EnsureRecords(ctx, l.scope, []string{e.PlayerID}, l.names); err != nil {
				l.log.Warn("ensure record failed", zap.String("player", e.PlayerID), zap.Error(err))
			}
		case engine.EvtMatchWon:
			if err := l.ledger.RecordMatch(ctx, l.scope, e.Winners, e.Losers, e.Delta, l.names); err != nil {
				return err
			}
		case engine.EvtMatchDrawn:
			if err := l.ledger.RecordDraw(ctx, l.scope, e.Winners, e.Losers, l.names); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Lobby) current(ctx context.Context) Snapshot {
	s, ok := l.repo.Get(l.scope)
	if !ok {
		return Snapshot{Version: l.version, Active: false, View: types.LobbyView{Scope: l.scope, Version: l.version}}
	}
	return Snapshot{Version: l.version, Active: true, View: l.render(ctx, s, l.note)}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the actor has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Do submits cmd and waits for the result. The returned error is the
// command's rejection, ctx expiry, or ErrClosed.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Ctx: ctx, Cmd: cmd, Reply: reply}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	}

	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	}
}

// Status asks the actor for its current snapshot.
func (l *Lobby) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-l.ctx.Done():
		return Status{}, ErrClosed
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-l.ctx.Done():
		return Status{}, ErrClosed
	}
}
