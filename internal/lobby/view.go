package lobby

import (
	"context"
	"fmt"
	"strings"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

const (
	noteOpen      = "Press Join to enter. Host/Admin can Start or Cancel."
	noteStarted   = "Use Team A Wins / Team B Wins, Draw, or Cancel Match."
	noteCancelled = "Match canceled by host. No points awarded."
	noteDiscarded = "Queue canceled by host."
	phaseDiscard  = "cancelled"
)

func (l *Lobby) name(ctx context.Context, id string) string {
	if l.names != nil {
		if n, ok := l.names.ResolveDisplayName(ctx, l.scope, id); ok && n != "" {
			return n
		}
	}
	return identity.Mention(id)
}

func (l *Lobby) joinNames(ctx context.Context, ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = l.name(ctx, id)
	}
	return strings.Join(out, ", ")
}

func (l *Lobby) team(ctx context.Context, name engine.Team, s engine.State, ids []string) *types.TeamView {
	tv := &types.TeamView{Name: string(name), Members: make([]types.Member, len(ids))}
	for i, id := range ids {
		pts := engine.DefaultPoints
		if v, ok := s.Points[id]; ok {
			pts = v
		}
		tv.Members[i] = types.Member{ID: id, Name: l.name(ctx, id), Points: pts}
		tv.Total += pts
	}
	return tv
}

func (l *Lobby) render(ctx context.Context, s engine.State, note string) types.LobbyView {
	v := types.LobbyView{
		Scope:   l.scope,
		LobbyID: s.ID,
		Version: l.version,
		Title:   s.Title,
		Host:    types.Member{ID: s.HostID, Name: l.name(ctx, s.HostID)},
		Phase:   string(s.Phase),
		Players: make([]types.Member, len(s.Players)),
		Note:    note,
	}
	for i, id := range s.Players {
		v.Players[i] = types.Member{ID: id, Name: l.name(ctx, id)}
	}

	if s.Phase == engine.PhaseStarted || s.Phase == engine.PhaseFinished {
		v.TeamA = l.team(ctx, engine.TeamA, s, s.TeamA)
		v.TeamB = l.team(ctx, engine.TeamB, s, s.TeamB)
		if s.Excluded != "" {
			v.Excluded = &types.Member{ID: s.Excluded, Name: l.name(ctx, s.Excluded)}
		}
	}
	if s.Outcome != nil {
		v.Outcome = string(s.Outcome.Kind)
		if s.Outcome.Kind == engine.OutcomeWin {
			v.Winner = string(s.Outcome.Winner)
		}
	}
	if v.Note == "" {
		v.Note = l.defaultNote(ctx, s)
	}
	return v
}

func (l *Lobby) defaultNote(ctx context.Context, s engine.State) string {
	switch s.Phase {
	case engine.PhaseOpen:
		return noteOpen
	case engine.PhaseStarted:
		return noteStarted
	case engine.PhaseFinished:
		return l.outcomeNote(ctx, s)
	default:
		return ""
	}
}

func (l *Lobby) outcomeNote(ctx context.Context, s engine.State) string {
	if s.Outcome == nil {
		return ""
	}
	switch s.Outcome.Kind {
	case engine.OutcomeWin:
		winners, losers := s.TeamA, s.TeamB
		if s.Outcome.Winner == engine.TeamB {
			winners, losers = s.TeamB, s.TeamA
		}
		return fmt.Sprintf("Winners (+%d): %s\nLosers (-%d): %s",
			s.Outcome.Delta, l.joinNames(ctx, winners), s.Outcome.Delta, l.joinNames(ctx, losers))
	case engine.OutcomeDraw:
		return fmt.Sprintf("Draw!\nTeam A: %s\nTeam B: %s", l.joinNames(ctx, s.TeamA), l.joinNames(ctx, s.TeamB))
	default:
		return noteCancelled
	}
}

// noteFor picks the message that goes with a committed command.
func (l *Lobby) noteFor(ctx context.Context, next engine.State, events []engine.Event) string {
	for _, e := range events {
		if e.Type == engine.EvtPlayerJoined && e.ActorID != e.PlayerID {
			return fmt.Sprintf("%s was added by %s.", l.name(ctx, e.PlayerID), l.name(ctx, e.ActorID))
		}
	}
	return l.defaultNote(ctx, next)
}
