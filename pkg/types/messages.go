package types

// Request bodies accepted by the HTTP surface. The acting player is never in
// the body; it comes from the X-Player-* headers set by the chat adapter.

type CreateLobbyRequest struct {
	Title string `json:"title"`
}

type AddPlayerRequest struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type DeclareWinnerRequest struct {
	Team string `json:"team"` // "A" | "B"
}

// Responses.

type JoinResponse struct {
	Joined bool      `json:"joined"`
	Lobby  LobbyView `json:"lobby"`
}

type LeaderboardRow struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Points   int     `json:"points"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	WinRate  float64 `json:"win_rate"`
}

type LeaderboardResponse struct {
	Scope string           `json:"scope"`
	Rows  []LeaderboardRow `json:"rows"`
}

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
