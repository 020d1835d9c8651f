package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/inhouse-queue/internal/partition"
)

var ErrUnauthorized = errors.New("only the host or an admin can do that")
var ErrInvalidState = errors.New("invalid lobby state")
var ErrNoLobby = fmt.Errorf("%w: no lobby", ErrInvalidState)
var ErrNotOpen = fmt.Errorf("%w: lobby is not open", ErrInvalidState)
var ErrNotStarted = fmt.Errorf("%w: match not started", ErrInvalidState)
var ErrAlreadyFinished = fmt.Errorf("%w: match already finished", ErrInvalidState)
var ErrOddRoster = errors.New("need an even number of players to start")
var ErrNotEnoughPlayers = errors.New("need at least two players to start")
var ErrUnknownTeam = errors.New("unknown team")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

type Phase string

const (
	PhaseNone     Phase = ""
	PhaseOpen     Phase = "open"
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
)

type OutcomeKind string

const (
	OutcomeWin       OutcomeKind = "win"
	OutcomeDraw      OutcomeKind = "draw"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is how a finished match ended. Only its ledger effect persists.
type Outcome struct {
	Kind   OutcomeKind
	Winner Team
	Delta  int
}

// Actor is whoever issued a command. Admin comes from the chat platform.
type Actor struct {
	ID    string
	Admin bool
}

type Rules struct {
	Delta        int
	StrictParity bool
}

type State struct {
	ID       string
	HostID   string
	Title    string
	Players  []string
	Phase    Phase
	TeamA    []string
	TeamB    []string
	Excluded string
	Points   map[string]int
	Outcome  *Outcome
	Rules    Rules
}

type CommandType string

const (
	CmdCreateLobby   CommandType = "CreateLobby"
	CmdJoin          CommandType = "Join"
	CmdAddPlayer     CommandType = "AddPlayer"
	CmdStartMatch    CommandType = "StartMatch"
	CmdDeclareWinner CommandType = "DeclareWinner"
	CmdDeclareDraw   CommandType = "DeclareDraw"
	CmdCancelMatch   CommandType = "CancelMatch"
	CmdCancelLobby   CommandType = "CancelLobby"
)

/*
	CmdCreateLobby   -> EvtLobbyCreated
	CmdJoin          -> EvtPlayerJoined (nothing if already in)
	CmdAddPlayer     -> EvtPlayerJoined
	CmdStartMatch    -> EvtMatchStarted
	CmdDeclareWinner -> EvtMatchWon    (ledger: RecordMatch)
	CmdDeclareDraw   -> EvtMatchDrawn  (ledger: RecordDraw)
	CmdCancelMatch   -> EvtMatchCancelled
	CmdCancelLobby   -> EvtLobbyCancelled (session discarded)
*/

type Command struct {
	Type       CommandType
	Actor      Actor
	LobbyID    string         // CreateLobby
	Title      string         // CreateLobby
	Rules      Rules          // CreateLobby
	Target     string         // AddPlayer
	TargetName string         // AddPlayer: display name reported for Target
	Team       Team           // DeclareWinner
	Points     map[string]int // StartMatch: current ledger scores
}

type EventType string

const (
	EvtLobbyCreated   EventType = "LobbyCreated"
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtMatchStarted   EventType = "MatchStarted"
	EvtMatchWon       EventType = "MatchWon"
	EvtMatchDrawn     EventType = "MatchDrawn"
	EvtMatchCancelled EventType = "MatchCancelled"
	EvtLobbyCancelled EventType = "LobbyCancelled"
)

type Event struct {
	Type     EventType
	PlayerID string
	ActorID  string
	Team     Team
	Winners  []string
	Losers   []string
	Delta    int
}

const DefaultTitle = "Queue"

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Type == CmdCreateLobby {
		return create(cmd)
	}
	if s.Phase == PhaseNone {
		return nil, s, ErrNoLobby
	}

	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd.Actor.ID, cmd.Actor.ID)

	case CmdAddPlayer:
		if !canManage(s, cmd.Actor) {
			return nil, s, ErrUnauthorized
		}
		if cmd.Target == "" {
			return nil, s, fmt.Errorf("%w: missing player", ErrUnsupportedCommand)
		}
		return join(s, cmd.Target, cmd.Actor.ID)

	case CmdStartMatch:
		return start(s, cmd)

	case CmdDeclareWinner:
		if err := checkResult(s, cmd.Actor); err != nil {
			return nil, s, err
		}
		var winners, losers []string
		switch cmd.Team {
		case TeamA:
			winners, losers = s.TeamA, s.TeamB
		case TeamB:
			winners, losers = s.TeamB, s.TeamA
		default:
			return nil, s, fmt.Errorf("%w: %q", ErrUnknownTeam, cmd.Team)
		}
		next := clone(s)
		next.Phase = PhaseFinished
		next.Outcome = &Outcome{Kind: OutcomeWin, Winner: cmd.Team, Delta: s.Rules.Delta}
		return []Event{{
			Type:    EvtMatchWon,
			ActorID: cmd.Actor.ID,
			Team:    cmd.Team,
			Winners: slices.Clone(winners),
			Losers:  slices.Clone(losers),
			Delta:   s.Rules.Delta,
		}}, next, nil

	case CmdDeclareDraw:
		if err := checkResult(s, cmd.Actor); err != nil {
			return nil, s, err
		}
		next := clone(s)
		next.Phase = PhaseFinished
		next.Outcome = &Outcome{Kind: OutcomeDraw}
		return []Event{{
			Type:    EvtMatchDrawn,
			ActorID: cmd.Actor.ID,
			Winners: slices.Clone(s.TeamA),
			Losers:  slices.Clone(s.TeamB),
		}}, next, nil

	case CmdCancelMatch:
		if err := checkResult(s, cmd.Actor); err != nil {
			return nil, s, err
		}
		next := clone(s)
		next.Phase = PhaseFinished
		next.Outcome = &Outcome{Kind: OutcomeCancelled}
		return []Event{{Type: EvtMatchCancelled, ActorID: cmd.Actor.ID}}, next, nil

	case CmdCancelLobby:
		if !canManage(s, cmd.Actor) {
			return nil, s, ErrUnauthorized
		}
		if s.Phase != PhaseOpen {
			return nil, s, ErrNotOpen
		}
		return []Event{{Type: EvtLobbyCancelled, ActorID: cmd.Actor.ID}}, State{}, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func create(cmd Command) ([]Event, State, error) {
	title := cmd.Title
	if title == "" {
		title = DefaultTitle
	}
	s := State{
		ID:      cmd.LobbyID,
		HostID:  cmd.Actor.ID,
		Title:   title,
		Players: []string{cmd.Actor.ID},
		Phase:   PhaseOpen,
		TeamA:   []string{},
		TeamB:   []string{},
		Rules:   cmd.Rules,
	}
	return []Event{{Type: EvtLobbyCreated, PlayerID: cmd.Actor.ID, ActorID: cmd.Actor.ID}}, s, nil
}

func join(s State, playerID, actorID string) ([]Event, State, error) {
	if s.Phase != PhaseOpen {
		return nil, s, ErrNotOpen
	}
	if playerID == "" {
		return nil, s, fmt.Errorf("%w: missing player", ErrUnsupportedCommand)
	}
	if slices.Contains(s.Players, playerID) {
		return nil, s, nil
	}
	next := clone(s)
	next.Players = append(next.Players, playerID)
	return []Event{{Type: EvtPlayerJoined, PlayerID: playerID, ActorID: actorID}}, next, nil
}

func start(s State, cmd Command) ([]Event, State, error) {
	if !canManage(s, cmd.Actor) {
		return nil, s, ErrUnauthorized
	}
	if s.Phase != PhaseOpen {
		return nil, s, ErrNotOpen
	}
	if len(s.Players) < 2 {
		return nil, s, ErrNotEnoughPlayers
	}
	if s.Rules.StrictParity && len(s.Players)%2 != 0 {
		return nil, s, ErrOddRoster
	}

	roster := make([]partition.Player, len(s.Players))
	points := make(map[string]int, len(s.Players))
	for i, id := range s.Players {
		pts := DefaultPoints
		if v, ok := cmd.Points[id]; ok {
			pts = v
		}
		roster[i] = partition.Player{ID: id, Points: pts}
		points[id] = pts
	}

	next := clone(s)
	next.TeamA, next.TeamB = partition.Partition(roster)
	next.Points = points
	next.Phase = PhaseStarted
	if p, odd := partition.Excluded(roster); odd {
		next.Excluded = p.ID
	}
	return []Event{{Type: EvtMatchStarted, ActorID: cmd.Actor.ID}}, next, nil
}

// checkResult guards the Started -> Finished transitions.
func checkResult(s State, actor Actor) error {
	if !canManage(s, actor) {
		return ErrUnauthorized
	}
	switch s.Phase {
	case PhaseStarted:
		return nil
	case PhaseFinished:
		return ErrAlreadyFinished
	default:
		return ErrNotStarted
	}
}
