package ledger

import (
	"context"
	"maps"
)

// DefaultPoints is the score of a player the ledger has never seen.
const DefaultPoints = 1000

// PlayerRecord is the persisted skill entry for one player in one scope.
type PlayerRecord struct {
	Points      int
	Wins        int
	Losses      int
	Draws       int
	DisplayName string
}

// NewRecord returns a record holding the defaults.
func NewRecord(displayName string) PlayerRecord {
	return PlayerRecord{Points: DefaultPoints, DisplayName: displayName}
}

// Normalize coerces malformed counters to their defaults.
func (r PlayerRecord) Normalize() PlayerRecord {
	if r.Wins < 0 {
		r.Wins = 0
	}
	if r.Losses < 0 {
		r.Losses = 0
	}
	if r.Draws < 0 {
		r.Draws = 0
	}
	return r
}

// Records maps player id to record for a single scope.
type Records map[string]PlayerRecord

// Clone returns a shallow copy; PlayerRecord has no reference fields.
func (r Records) Clone() Records {
	if r == nil {
		return Records{}
	}
	return maps.Clone(r)
}

// Store is the persistence contract the ledger runs its read-modify-write
// cycles against.
type Store interface {
	Load(ctx context.Context, scope string) (Records, error)
	Save(ctx context.Context, scope string, records Records) error
}

// NameResolver maps a player id to a display name. Absence is fine.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, scope, playerID string) (string, bool)
}

// Points is a read-only projection of record scores.
type Points map[string]int

// Of returns the player's points, or DefaultPoints when unknown.
func (p Points) Of(playerID string) int {
	if v, ok := p[playerID]; ok {
		return v
	}
	return DefaultPoints
}

// Row is one leaderboard line.
type Row struct {
	PlayerID string
	Name     string
	Points   int
	Wins     int
	Losses   int
	Draws    int
}

// WinRate is wins over decided games as a percentage; draws don't count.
func (r Row) WinRate() float64 {
	decided := r.Wins + r.Losses
	if decided == 0 {
		return 0
	}
	return float64(r.Wins) / float64(decided) * 100
}
