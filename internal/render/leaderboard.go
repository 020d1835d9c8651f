// Package render turns ledger rows into the shapes chat adapters display.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/pkg/types"
)

const (
	nameWidth   = 12
	unknownName = "Unknown"
	// NoStats is shown instead of an empty table.
	NoStats = "No stats available."
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Rows ranks ledger rows for the JSON leaderboard. Input order is kept.
func Rows(rows []ledger.Row) []types.LeaderboardRow {
	out := make([]types.LeaderboardRow, len(rows))
	for i, r := range rows {
		out[i] = types.LeaderboardRow{
			Rank:     i + 1,
			PlayerID: r.PlayerID,
			Name:     displayName(r.Name),
			Points:   r.Points,
			Wins:     r.Wins,
			Losses:   r.Losses,
			Draws:    r.Draws,
			WinRate:  r.WinRate(),
		}
	}
	return out
}

// Leaderboard renders rows as a fixed-width table:
//
//	#  | Player       |  Elo |  W-D-L  |    WR
func Leaderboard(rows []ledger.Row) string {
	if len(rows) == 0 {
		return NoStats
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-2s | %-12s | %4s | %s | %5s  \n", "#", "Player", "Elo", center("W-D-L", 7), "WR")
	b.WriteString(strings.Repeat("-", 44))

	for i, r := range rows {
		record := fmt.Sprintf("%d-%d-%d", r.Wins, r.Draws, r.Losses)
		fmt.Fprintf(&b, "\n%-2d | %-12s | %4d | %s | %5.1f%%",
			i+1, displayName(r.Name), r.Points, center(record, 7), r.WinRate())
	}
	return b.String()
}

// displayName truncates to the column width and capitalizes the first rune,
// lowering the rest.
func displayName(name string) string {
	if name == "" {
		name = unknownName
	}
	if utf8.RuneCountInString(name) > nameWidth {
		name = string([]rune(name)[:nameWidth])
	}
	first, size := utf8.DecodeRuneInString(name)
	return upper.String(string(first)) + lower.String(name[size:])
}

func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
