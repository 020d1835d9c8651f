package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var ErrInvalidTransaction = errors.New("invalid ledger transaction")
var ErrPersistence = errors.New("ledger persistence failed")

// Ledger applies skill updates against a Store. Every load-modify-save cycle
// for a scope runs under that scope's lock; scopes never block each other.
type Ledger struct {
	store Store
	log   *zap.Logger

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

func New(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		log:    log.Named("ledger"),
		scopes: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lock(scope string) func() {
	l.mu.Lock()
	m, ok := l.scopes[scope]
	if !ok {
		m = &sync.Mutex{}
		l.scopes[scope] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// load never fails: a missing or unreadable ledger means everyone is at the
// default score.
func (l *Ledger) load(ctx context.Context, scope string) Records {
	recs, err := l.store.Load(ctx, scope)
	if err != nil {
		l.log.Warn("load records failed, using empty ledger",
			zap.String("scope", scope), zap.Error(err))
		return Records{}
	}
	if recs == nil {
		return Records{}
	}
	return recs
}

func (l *Ledger) save(ctx context.Context, scope string, recs Records) error {
	if err := l.store.Save(ctx, scope, recs); err != nil {
		return fmt.Errorf("%w: scope %s: %w", ErrPersistence, scope, err)
	}
	return nil
}

func ensureEntry(ctx context.Context, recs Records, scope, id string, names NameResolver) {
	rec, ok := recs[id]
	if !ok {
		recs[id] = NewRecord(resolve(ctx, names, scope, id))
		return
	}
	rec = rec.Normalize()
	if rec.DisplayName == "" {
		rec.DisplayName = resolve(ctx, names, scope, id)
	}
	recs[id] = rec
}

func resolve(ctx context.Context, names NameResolver, scope, id string) string {
	if names == nil {
		return ""
	}
	name, ok := names.ResolveDisplayName(ctx, scope, id)
	if !ok {
		return ""
	}
	return name
}

// EnsureRecords creates default records for unknown players and repairs
// existing ones without touching valid counters.
func (l *Ledger) EnsureRecords(ctx context.Context, scope string, playerIDs []string, names NameResolver) error {
	unlock := l.lock(scope)
	defer unlock()

	recs := l.load(ctx, scope)
	for _, id := range playerIDs {
		ensureEntry(ctx, recs, scope, id, names)
	}
	return l.save(ctx, scope, recs)
}

// RecordMatch moves delta points from every loser to every winner's side and
// bumps win/loss counters. Calling it twice applies the result twice.
func (l *Ledger) RecordMatch(ctx context.Context, scope string, winners, losers []string, delta int, names NameResolver) error {
	if delta < 0 {
		return fmt.Errorf("%w: negative delta %d", ErrInvalidTransaction, delta)
	}
	onWinning := make(map[string]bool, len(winners))
	for _, id := range winners {
		onWinning[id] = true
	}
	for _, id := range losers {
		if onWinning[id] {
			return fmt.Errorf("%w: player %s on both sides", ErrInvalidTransaction, id)
		}
	}

	unlock := l.lock(scope)
	defer unlock()

	recs := l.load(ctx, scope)
	for _, id := range winners {
		ensureEntry(ctx, recs, scope, id, names)
	}
	for _, id := range losers {
		ensureEntry(ctx, recs, scope, id, names)
	}

	for _, id := range winners {
		rec := recs[id]
		rec.Points += delta
		rec.Wins++
		recs[id] = rec
	}
	for _, id := range losers {
		rec := recs[id]
		rec.Points -= delta
		rec.Losses++
		recs[id] = rec
	}

	if err := l.save(ctx, scope, recs); err != nil {
		return err
	}
	l.log.Info("match recorded",
		zap.String("scope", scope),
		zap.Strings("winners", winners),
		zap.Strings("losers", losers),
		zap.Int("delta", delta))
	return nil
}

// RecordDraw bumps the draw counter for both teams.
func (l *Ledger) RecordDraw(ctx context.Context, scope string, teamA, teamB []string, names NameResolver) error {
	unlock := l.lock(scope)
	defer unlock()

	recs := l.load(ctx, scope)
	everyone := append(append([]string{}, teamA...), teamB...)
	for _, id := range everyone {
		ensureEntry(ctx, recs, scope, id, names)
	}
	for _, id := range everyone {
		rec := recs[id]
		rec.Draws++
		recs[id] = rec
	}

	if err := l.save(ctx, scope, recs); err != nil {
		return err
	}
	l.log.Info("draw recorded", zap.String("scope", scope), zap.Strings("players", everyone))
	return nil
}

// PointsSnapshot reads current scores. Unknown players resolve to
// DefaultPoints through Points.Of.
func (l *Ledger) PointsSnapshot(ctx context.Context, scope string) Points {
	unlock := l.lock(scope)
	defer unlock()

	recs := l.load(ctx, scope)
	out := make(Points, len(recs))
	for id, rec := range recs {
		out[id] = rec.Points
	}
	return out
}

// LeaderboardRows lists every record by points descending, then player id.
func (l *Ledger) LeaderboardRows(ctx context.Context, scope string) []Row {
	unlock := l.lock(scope)
	defer unlock()

	recs := l.load(ctx, scope)
	rows := make([]Row, 0, len(recs))
	for id, rec := range recs {
		rec = rec.Normalize()
		rows = append(rows, Row{
			PlayerID: id,
			Name:     rec.DisplayName,
			Points:   rec.Points,
			Wins:     rec.Wins,
			Losses:   rec.Losses,
			Draws:    rec.Draws,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	return rows
}
