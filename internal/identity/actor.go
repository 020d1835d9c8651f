package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
)

const (
	HeaderPlayerID    = "X-Player-ID"
	HeaderPlayerName  = "X-Player-Name"
	HeaderPlayerAdmin = "X-Player-Admin"
)

type actorKey struct{}

// Caller is who sent a request, as reported by the chat adapter.
type Caller struct {
	engine.Actor
	Name string
}

// FromHeaders reads the caller from the X-Player-* headers. ok is false
// when no player id was sent.
func FromHeaders(h http.Header) (Caller, bool) {
	id := strings.TrimSpace(h.Get(HeaderPlayerID))
	if id == "" {
		return Caller{}, false
	}
	admin, _ := strconv.ParseBool(h.Get(HeaderPlayerAdmin))
	return Caller{
		Actor: engine.Actor{ID: id, Admin: admin},
		Name:  strings.TrimSpace(h.Get(HeaderPlayerName)),
	}, true
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, actorKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(actorKey{}).(Caller)
	return c, ok
}
