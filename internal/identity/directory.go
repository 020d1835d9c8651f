package identity

import (
	"context"
	"strings"
	"sync"
)

// Mention is the raw-id form used when no display name is known.
func Mention(playerID string) string {
	return "<@" + playerID + ">"
}

// Directory remembers display names reported by the chat adapter, per scope.
type Directory struct {
	mu    sync.RWMutex
	names map[string]map[string]string
}

func NewDirectory() *Directory {
	return &Directory{names: make(map[string]map[string]string)}
}

// Remember records a name; blank names are ignored.
func (d *Directory) Remember(scope, playerID, name string) {
	name = strings.TrimSpace(name)
	if playerID == "" || name == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byID, ok := d.names[scope]
	if !ok {
		byID = make(map[string]string)
		d.names[scope] = byID
	}
	byID[playerID] = name
}

// ResolveDisplayName implements ledger.NameResolver.
func (d *Directory) ResolveDisplayName(_ context.Context, scope, playerID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[scope][playerID]
	return name, ok
}

// DisplayOrMention returns the known name or the mention fallback.
func (d *Directory) DisplayOrMention(ctx context.Context, scope, playerID string) string {
	if name, ok := d.ResolveDisplayName(ctx, scope, playerID); ok {
		return name
	}
	return Mention(playerID)
}
