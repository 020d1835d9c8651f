package types

import "github.com/DoyleJ11/inhouse-queue/pkg/types"

type ClientMessage struct {
	Type string `json:"type"`
	Team string `json:"team,omitempty"`
}

type ServerMessage struct {
	Type    string           `json:"type"` // "LobbySnapshot" | "Error"
	Version int              `json:"version,omitempty"`
	Lobby   *types.LobbyView `json:"lobby,omitempty"`
	Error   string           `json:"error,omitempty"`
}
