package types

// LobbyView is the render model handed to the presentation layer: everything
// a chat adapter needs to draw the queue message for one scope.
//
// Phase is one of "open", "started", "finished" or "cancelled" (the queue was
// discarded before the match started).
type LobbyView struct {
	Scope    string    `json:"scope"`
	LobbyID  string    `json:"lobby_id"`
	Version  int       `json:"version"`
	Title    string    `json:"title"`
	Host     Member    `json:"host"`
	Phase    string    `json:"phase"`
	Players  []Member  `json:"players"`
	TeamA    *TeamView `json:"team_a,omitempty"`
	TeamB    *TeamView `json:"team_b,omitempty"`
	Excluded *Member   `json:"excluded,omitempty"`
	Outcome  string    `json:"outcome,omitempty"` // "win" | "draw" | "cancelled"
	Winner   string    `json:"winner,omitempty"`  // "A" | "B"
	Note     string    `json:"note,omitempty"`
}

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points,omitempty"`
}

type TeamView struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}
