package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultPoints is used for players missing from a start snapshot.
const DefaultPoints = 1000

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func canManage(s State, actor Actor) bool {
	return actor.Admin || (actor.ID != "" && actor.ID == s.HostID)
}

func clone(s State) State {
	out := s
	out.Players = slices.Clone(s.Players)
	out.TeamA = slices.Clone(s.TeamA)
	out.TeamB = slices.Clone(s.TeamB)
	out.Points = maps.Clone(s.Points)
	if s.Outcome != nil {
		o := *s.Outcome
		out.Outcome = &o
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func Clone(s State) State { return clone(s) }

// ParseTeam accepts "A" or "B" in either case.
func ParseTeam(s string) (Team, error) {
	switch Team(strings.ToUpper(strings.TrimSpace(s))) {
	case TeamA:
		return TeamA, nil
	case TeamB:
		return TeamB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTeam, s)
	}
}
