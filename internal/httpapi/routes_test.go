package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/inhouse-queue/internal/store/memory"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

type brokenStore struct{ *memory.RecordStore }

func (brokenStore) Save(context.Context, string, ledger.Records) error {
	return errors.New("read-only filesystem")
}

func newTestServer(t *testing.T, store ledger.Store) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	names := identity.NewDirectory()
	led := ledger.New(store, nil)
	h := hub.NewHub(ctx, lobby.Config{
		Ledger: led,
		Names:  names,
		Rules:  engine.Rules{Delta: 50, StrictParity: true},
	})
	srv := httptest.NewServer(SetupRoutes(h, led, names, nil))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, player, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if player != "" {
		req.Header.Set(identity.HeaderPlayerID, player)
		req.Header.Set(identity.HeaderPlayerName, strings.ToLower(player)+"name")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func requireError(t *testing.T, resp *http.Response, data []byte, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode, string(data))
	assert.Equal(t, code, decodeAs[types.ErrorResponse](t, data).Code)
}

func TestRoutes_FullMatch(t *testing.T) {
	store := memory.NewRecordStore()
	require.NoError(t, store.Save(context.Background(), "g1", ledger.Records{
		"A": {Points: 1200}, "B": {Points: 1000}, "C": {Points: 1000}, "D": {Points: 800},
	}))
	srv := newTestServer(t, store)

	resp, data := call(t, srv, http.MethodPost, "/scopes/g1/lobby", "A", `{"title":"Friday"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	view := decodeAs[types.LobbyView](t, data)
	assert.Equal(t, "open", view.Phase)
	assert.Equal(t, "Friday", view.Title)
	assert.Equal(t, "aname", view.Host.Name)

	for _, p := range []string{"B", "C", "D"} {
		resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/join", p, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		assert.True(t, decodeAs[types.JoinResponse](t, data).Joined)
	}

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/start", "B", "")
	requireError(t, resp, data, http.StatusForbidden, "unauthorized")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/start", "A", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	view = decodeAs[types.LobbyView](t, data)
	require.NotNil(t, view.TeamA)
	assert.Equal(t, 2000, view.TeamA.Total)
	assert.Equal(t, 2000, view.TeamB.Total)

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/join", "E", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeAs[types.JoinResponse](t, data).Joined)

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/winner", "A", `{"team":"purple"}`)
	requireError(t, resp, data, http.StatusBadRequest, "bad_request")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/winner", "A", `{"team":"A"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	view = decodeAs[types.LobbyView](t, data)
	assert.Equal(t, "win", view.Outcome)
	assert.Equal(t, "A", view.Winner)

	resp, data = call(t, srv, http.MethodPost, "/scopes/g1/lobby/draw", "A", "")
	requireError(t, resp, data, http.StatusConflict, "invalid_state")

	resp, data = call(t, srv, http.MethodGet, "/scopes/g1/leaderboard", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decodeAs[types.LeaderboardResponse](t, data)
	require.Len(t, board.Rows, 4)
	assert.Equal(t, "A", board.Rows[0].PlayerID)
	assert.Equal(t, 1250, board.Rows[0].Points)
	assert.Equal(t, "Aname", board.Rows[0].Name)
	assert.Equal(t, 850, board.Rows[3].Points)

	resp, data = call(t, srv, http.MethodGet, "/scopes/g1/leaderboard?format=text", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(data), "1  | Aname        | 1250 |  1-0-0  | 100.0%")
}

func TestRoutes_GuardsAndInput(t *testing.T) {
	srv := newTestServer(t, memory.NewRecordStore())

	resp, data := call(t, srv, http.MethodPost, "/scopes/g2/lobby", "", "")
	requireError(t, resp, data, http.StatusBadRequest, "bad_request")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/join", "A", "")
	requireError(t, resp, data, http.StatusConflict, "invalid_state")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby", "H", "{not json")
	requireError(t, resp, data, http.StatusBadRequest, "bad_request")

	resp, _ = call(t, srv, http.MethodPost, "/scopes/g2/lobby", "H", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/start", "H", "")
	requireError(t, resp, data, http.StatusUnprocessableEntity, "not_enough_players")

	for _, p := range []string{"B", "C"} {
		resp, _ = call(t, srv, http.MethodPost, "/scopes/g2/lobby/join", p, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/start", "H", "")
	requireError(t, resp, data, http.StatusUnprocessableEntity, "odd_roster")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/cancel", "H", "")
	requireError(t, resp, data, http.StatusConflict, "invalid_state")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/players", "H", `{}`)
	requireError(t, resp, data, http.StatusBadRequest, "bad_request")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g2/lobby/players", "H", `{"player_id":"Z","display_name":"Zoe"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	join := decodeAs[types.JoinResponse](t, data)
	assert.True(t, join.Joined)
	assert.Equal(t, "Zoe was added by hname.", join.Lobby.Note)

	resp, data = call(t, srv, http.MethodGet, "/scopes/g2/lobby", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeAs[types.LobbyView](t, data).Players, 4)

	resp, data = call(t, srv, http.MethodDelete, "/scopes/g2/lobby", "B", "")
	requireError(t, resp, data, http.StatusForbidden, "unauthorized")

	resp, data = call(t, srv, http.MethodDelete, "/scopes/g2/lobby", "H", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", decodeAs[types.LobbyView](t, data).Phase)

	resp, _ = call(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_RejectedAddPlayerKeepsNames(t *testing.T) {
	srv := newTestServer(t, memory.NewRecordStore())

	resp, _ := call(t, srv, http.MethodPost, "/scopes/g4/lobby", "H", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = call(t, srv, http.MethodPost, "/scopes/g4/lobby/join", "B", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := call(t, srv, http.MethodPost, "/scopes/g4/lobby/players", "B", `{"player_id":"Z","display_name":"Mallory"}`)
	requireError(t, resp, data, http.StatusForbidden, "unauthorized")

	resp, data = call(t, srv, http.MethodPost, "/scopes/g4/lobby/players", "H", `{"player_id":"Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "<@Z> was added by hname.", decodeAs[types.JoinResponse](t, data).Lobby.Note)

	resp, data = call(t, srv, http.MethodGet, "/scopes/g4/leaderboard", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, row := range decodeAs[types.LeaderboardResponse](t, data).Rows {
		assert.NotEqual(t, "Mallory", row.Name)
	}
}

func TestRoutes_PersistenceFailure(t *testing.T) {
	srv := newTestServer(t, brokenStore{memory.NewRecordStore()})

	resp, _ := call(t, srv, http.MethodPost, "/scopes/g3/lobby", "H", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = call(t, srv, http.MethodPost, "/scopes/g3/lobby/join", "P", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, srv, http.MethodPost, "/scopes/g3/lobby/start", "H", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := call(t, srv, http.MethodPost, "/scopes/g3/lobby/winner", "H", `{"team":"b"}`)
	requireError(t, resp, data, http.StatusServiceUnavailable, "persistence")

	resp, data = call(t, srv, http.MethodGet, "/scopes/g3/lobby", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "started", decodeAs[types.LobbyView](t, data).Phase)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{engine.ErrAlreadyFinished, http.StatusConflict},
		{engine.ErrNoLobby, http.StatusConflict},
		{engine.ErrUnauthorized, http.StatusForbidden},
		{engine.ErrOddRoster, http.StatusUnprocessableEntity},
		{ledger.ErrInvalidTransaction, http.StatusBadRequest},
		{ledger.ErrPersistence, http.StatusServiceUnavailable},
		{lobby.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := status(tt.err)
			assert.Equal(t, tt.code, got)
		})
	}
}
