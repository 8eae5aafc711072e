package match

import (
	"strings"
	"time"
)

// Status values observed across seasons. Older schedule tables store a
// numeric code, newer ones store text; both normalize to string upstream.
const (
	StatusFinishedCode = "2"
	StatusFinishedText = "Finished"
)

// FinishedStatuses is the set of status values counting as a played match.
func FinishedStatuses() []string {
	return []string{StatusFinishedCode, StatusFinishedText}
}

// Side labels as surfaced to the presentation layer.
const (
	SideHome = "Mandante"
	SideAway = "Visitante"
)

// Match is one scheduled game. Scores are nil until the match is played.
type Match struct {
	MatchID   int64
	Season    int
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeScore *int64
	AwayScore *int64
	Status    string
	Side      string
}

func IsFinishedStatus(status string) bool {
	switch strings.TrimSpace(status) {
	case StatusFinishedCode, StatusFinishedText:
		return true
	default:
		return false
	}
}

// Played reports whether the match has a final score. Some rows carry a
// finished status but null scores; those are treated as unplayed.
func (m Match) Played() bool {
	return m.HomeScore != nil && m.AwayScore != nil && IsFinishedStatus(m.Status)
}

// Opponent returns the other side of the match relative to team. The second
// return is false when team is neither side, which signals a naming drift
// between the schedule and event tables.
func (m Match) Opponent(team string) (string, bool) {
	switch team {
	case m.HomeTeam:
		return m.AwayTeam, true
	case m.AwayTeam:
		return m.HomeTeam, true
	default:
		return "", false
	}
}
