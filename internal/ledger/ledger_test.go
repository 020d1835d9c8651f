package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/internal/store/memory"
)

type names map[string]string

func (n names) ResolveDisplayName(_ context.Context, _, id string) (string, bool) {
	name, ok := n[id]
	return name, ok
}

// flakyStore fails loads or saves on demand and counts saves.
type flakyStore struct {
	*memory.RecordStore
	loadErr error
	saveErr error
	saves   int
}

func (f *flakyStore) Load(ctx context.Context, scope string) (ledger.Records, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.RecordStore.Load(ctx, scope)
}

func (f *flakyStore) Save(ctx context.Context, scope string, recs ledger.Records) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.RecordStore.Save(ctx, scope, recs)
}

func newLedger(t *testing.T) (*ledger.Ledger, *memory.RecordStore) {
	t.Helper()
	store := memory.NewRecordStore()
	return ledger.New(store, nil), store
}

func TestEnsureRecords_CreatesDefaults(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)

	err := l.EnsureRecords(ctx, "g1", []string{"a", "b"}, names{"a": "Alice"})
	require.NoError(t, err)

	recs, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Records{
		"a": {Points: 1000, DisplayName: "Alice"},
		"b": {Points: 1000},
	}, recs)
}

func TestEnsureRecords_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	resolver := names{"a": "Alice", "b": "Bob"}

	require.NoError(t, store.Save(ctx, "g1", ledger.Records{
		"a": {Points: 1130, Wins: 4, Losses: -2},
	}))

	require.NoError(t, l.EnsureRecords(ctx, "g1", []string{"a", "b"}, resolver))
	once, _ := store.Load(ctx, "g1")

	require.NoError(t, l.EnsureRecords(ctx, "g1", []string{"a", "b"}, resolver))
	twice, _ := store.Load(ctx, "g1")

	assert.Equal(t, once, twice)
	assert.Equal(t, ledger.PlayerRecord{Points: 1130, Wins: 4, DisplayName: "Alice"}, twice["a"])
}

func TestEnsureRecords_KeepsExistingName(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	require.NoError(t, store.Save(ctx, "g1", ledger.Records{"a": {Points: 1000, DisplayName: "Old"}}))

	require.NoError(t, l.EnsureRecords(ctx, "g1", []string{"a"}, names{"a": "New"}))

	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, "Old", recs["a"].DisplayName)
}

func TestRecordMatch_ConservesDelta(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	require.NoError(t, store.Save(ctx, "g1", ledger.Records{
		"A": {Points: 1200}, "B": {Points: 1000}, "C": {Points: 1000}, "D": {Points: 800},
	}))

	before := l.PointsSnapshot(ctx, "g1")
	require.NoError(t, l.RecordMatch(ctx, "g1", []string{"A", "D"}, []string{"B", "C"}, 50, nil))
	after := l.PointsSnapshot(ctx, "g1")

	gained := (after.Of("A") - before.Of("A")) + (after.Of("D") - before.Of("D"))
	lost := (before.Of("B") - after.Of("B")) + (before.Of("C") - after.Of("C"))
	assert.Equal(t, 50*2, gained)
	assert.Equal(t, 50*2, lost)

	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, ledger.PlayerRecord{Points: 1250, Wins: 1}, recs["A"])
	assert.Equal(t, ledger.PlayerRecord{Points: 850, Wins: 1}, recs["D"])
	assert.Equal(t, ledger.PlayerRecord{Points: 950, Losses: 1}, recs["B"])
	assert.Equal(t, ledger.PlayerRecord{Points: 950, Losses: 1}, recs["C"])
}

func TestRecordMatch_CreatesMissingRecords(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)

	require.NoError(t, l.RecordMatch(ctx, "g1", []string{"w"}, []string{"l"}, 25, names{"w": "Winner"}))

	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, ledger.PlayerRecord{Points: 1025, Wins: 1, DisplayName: "Winner"}, recs["w"])
	assert.Equal(t, ledger.PlayerRecord{Points: 975, Losses: 1}, recs["l"])
}

func TestRecordMatch_RejectsMalformedTransactions(t *testing.T) {
	cases := []struct {
		name    string
		winners []string
		losers  []string
		delta   int
	}{
		{name: "negative delta", winners: []string{"a"}, losers: []string{"b"}, delta: -1},
		{name: "player on both sides", winners: []string{"a", "b"}, losers: []string{"b", "c"}, delta: 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &flakyStore{RecordStore: memory.NewRecordStore()}
			l := ledger.New(store, nil)

			err := l.RecordMatch(context.Background(), "g1", tc.winners, tc.losers, tc.delta, nil)
			require.ErrorIs(t, err, ledger.ErrInvalidTransaction)
			assert.Zero(t, store.saves)
		})
	}
}

func TestRecordDraw_BumpsDrawsOnly(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	require.NoError(t, store.Save(ctx, "g1", ledger.Records{"a": {Points: 1100, Wins: 2}}))

	require.NoError(t, l.RecordDraw(ctx, "g1", []string{"a"}, []string{"b"}, nil))

	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, ledger.PlayerRecord{Points: 1100, Wins: 2, Draws: 1}, recs["a"])
	assert.Equal(t, ledger.PlayerRecord{Points: 1000, Draws: 1}, recs["b"])
}

func TestLoadFailure_DegradesToEmptyLedger(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{RecordStore: memory.NewRecordStore(), loadErr: errors.New("corrupt")}
	l := ledger.New(store, nil)

	points := l.PointsSnapshot(ctx, "g1")
	assert.Empty(t, points)
	assert.Equal(t, ledger.DefaultPoints, points.Of("anyone"))
	assert.Empty(t, l.LeaderboardRows(ctx, "g1"))

	require.NoError(t, l.RecordMatch(ctx, "g1", []string{"a"}, []string{"b"}, 50, nil))
	store.loadErr = nil
	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, 1050, recs["a"].Points)
}

func TestSaveFailure_IsPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	store := &flakyStore{RecordStore: memory.NewRecordStore(), saveErr: cause}
	l := ledger.New(store, nil)

	err := l.RecordDraw(context.Background(), "g1", []string{"a"}, []string{"b"}, nil)
	require.ErrorIs(t, err, ledger.ErrPersistence)
	require.ErrorIs(t, err, cause)
}

func TestLeaderboardRows_SortedByPointsThenID(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	require.NoError(t, store.Save(ctx, "g1", ledger.Records{
		"zed":  {Points: 1050, Wins: 1, DisplayName: "Zed"},
		"amy":  {Points: 1050, Wins: 3, Losses: 1, DisplayName: "Amy"},
		"bob":  {Points: 950, Losses: 1},
		"cara": {Points: 1200, Wins: 4, Draws: 2, DisplayName: "Cara"},
	}))

	rows := l.LeaderboardRows(ctx, "g1")

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PlayerID
	}
	assert.Equal(t, []string{"cara", "amy", "zed", "bob"}, ids)
	assert.InDelta(t, 75.0, rows[1].WinRate(), 0.001)
	assert.Zero(t, ledger.Row{Draws: 3}.WinRate())
}

func TestScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	require.NoError(t, l.RecordMatch(ctx, "g1", []string{"a"}, []string{"b"}, 50, nil))

	assert.Equal(t, 1050, l.PointsSnapshot(ctx, "g1").Of("a"))
	assert.Equal(t, 1000, l.PointsSnapshot(ctx, "g2").Of("a"))
}

func TestConcurrentMatches_NoLostUpdates(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.RecordMatch(ctx, "g1", []string{"a"}, []string{"b"}, 10, nil))
		}()
	}
	wg.Wait()

	recs, _ := store.Load(ctx, "g1")
	assert.Equal(t, ledger.PlayerRecord{Points: 1250, Wins: 25}, recs["a"])
	assert.Equal(t, ledger.PlayerRecord{Points: 750, Losses: 25}, recs["b"])
}
