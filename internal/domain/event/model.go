package event

import (
	"regexp"
	"time"
)

// Event types observed in the feed. The type column is free text; this list
// drives the UI catalog, not validation.
const (
	TypePass         = "Pass"
	TypeGoal         = "Goal"
	TypeSavedShot    = "SavedShot"
	TypeMissedShots  = "MissedShots"
	TypeShotOnPost   = "ShotOnPost"
	TypeBallRecovery = "BallRecovery"
	TypeTackle       = "Tackle"
	TypeInterception = "Interception"
	TypeFoul         = "Foul"
	TypeSave         = "Save"
	TypeClearance    = "Clearance"
	TypeTakeOn       = "TakeOn"
	TypeAerial       = "Aerial"
	TypeError        = "Error"
	TypeChallenge    = "Challenge"
	TypeDispossessed = "Dispossessed"
	TypeBlockedPass  = "BlockedPass"
	TypeSmother      = "Smother"
	TypeKeeperPickup = "KeeperPickup"
)

const (
	OutcomeSuccessful   = "Successful"
	OutcomeUnsuccessful = "Unsuccessful"
)

// KnownTypes returns the event type catalog in display order.
func KnownTypes() []string {
	return []string{
		TypePass, TypeGoal, TypeSavedShot, TypeMissedShots, TypeShotOnPost,
		TypeBallRecovery, TypeTackle, TypeInterception, TypeFoul, TypeSave,
		TypeClearance, TypeTakeOn, TypeAerial, TypeError, TypeChallenge,
		TypeDispossessed, TypeBlockedPass, TypeSmother, TypeKeeperPickup,
	}
}

// KnownQualifiers returns the curated qualifier tag catalog. The qualifiers
// column is open-ended; these are the tags the views offer up front.
func KnownQualifiers() []string {
	return []string{
		"KeyPass", "Assisted", "BigChanceCreated", "LeadingToGoal",
		"LeadingToAttempt", "Head", "Cross", "Corner", "FreeKick", "Penalty",
		"Throughball", "Longball", "Chipped", "LayOff", "Volley", "OwnGoal",
		"Red", "Yellow",
	}
}

// Event is one reconciled on-pitch action. Team is the literal acting side;
// EffectiveTeam carries the own-goal reattribution computed warehouse-side.
type Event struct {
	MatchID         int64
	Season          int
	MatchDate       time.Time
	Team            string
	EffectiveTeam   string
	Player          *string
	PlayerID        *int64
	Type            string
	OutcomeType     *string
	Qualifiers      string
	Tags            []string
	ExpandedMinute  int64
	Period          int64
	X, Y            float64
	EndX, EndY      float64
	IsShot          bool
	RelatedPlayerID *int64
}

// The qualifiers column serializes a list of tag objects in Python literal
// syntax, e.g. [{'type': {'displayName': 'Zone'}, 'value': 'Back'}]. Only
// the displayName is meaningful here; newer exports use double quotes.
var displayNamePattern = regexp.MustCompile(`['"]displayName['"]\s*:\s*['"]([^'"]*)['"]`)

// ParseQualifiers extracts the tag names from a serialized qualifiers blob.
// Malformed or empty blobs yield an empty list, never an error.
func ParseQualifiers(serialized string) []string {
	matches := displayNamePattern.FindAllStringSubmatch(serialized, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			tags = append(tags, m[1])
		}
	}
	return tags
}

// HasAllTags reports whether every wanted tag appears in tags. This is the
// contains-ALL refinement applied in memory after the warehouse-side any-of
// match.
func HasAllTags(tags, wanted []string) bool {
	for _, w := range wanted {
		found := false
		for _, t := range tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var ownGoalPattern = regexp.MustCompile(`(?i)(own[ _-]?goal|gol[ _-]?contra)`)

// IsOwnGoal reports whether the serialized qualifiers tag the event as an
// own goal. Only meaningful for Goal events.
func IsOwnGoal(qualifiers string) bool {
	return ownGoalPattern.MatchString(qualifiers)
}

// EffectiveTeam computes the side credited with an event. Own goals flip to
// the opponent relative to the match record; everything else keeps the
// literal team. Mirrors the warehouse-side attribution column for callers
// working with raw rows.
func EffectiveTeam(team, homeTeam, awayTeam, qualifiers, eventType string) string {
	if eventType != TypeGoal || !IsOwnGoal(qualifiers) {
		return team
	}
	if team == homeTeam {
		return awayTeam
	}
	return homeTeam
}

// RescaleCoordinate maps a pitch coordinate to the 0-100 scale. Some season
// exports store coordinates on 0-1.
func RescaleCoordinate(v float64) float64 {
	if v > 0 && v <= 1 {
		return v * 100
	}
	return v
}
