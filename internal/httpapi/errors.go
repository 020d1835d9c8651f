package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

var (
	errMissingPlayer = errors.New("missing X-Player-ID header")
	errBadBody       = errors.New("malformed request body")
)

// status maps a command error to an HTTP status and a stable code.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, engine.ErrOddRoster):
		return http.StatusUnprocessableEntity, "odd_roster"
	case errors.Is(err, engine.ErrNotEnoughPlayers):
		return http.StatusUnprocessableEntity, "not_enough_players"
	case errors.Is(err, engine.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, engine.ErrUnknownTeam),
		errors.Is(err, engine.ErrUnsupportedCommand),
		errors.Is(err, errMissingPlayer),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ledger.ErrInvalidTransaction):
		return http.StatusBadRequest, "invalid_transaction"
	case errors.Is(err, ledger.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence"
	case errors.Is(err, lobby.ErrClosed),
		errors.Is(err, hub.ErrStopped),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, name := status(err)
	writeJSON(w, code, types.ErrorResponse{Code: name, Error: err.Error()})
}
