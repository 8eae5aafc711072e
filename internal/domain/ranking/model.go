package ranking

import "time"

// UI vocabulary. The views speak Portuguese; the warehouse speaks the feed's
// canonical English values. Sentinels mark an unconstrained dimension.
const (
	Unconstrained           = "Todos"
	UnconstrainedQualifiers = "Todos (Qualquer)"

	SubjectTeams   = "Equipes"
	SubjectPlayers = "Jogadores"

	OutcomeLabelSuccess = "Sucesso"
	OutcomeLabelFailure = "Falha"

	PerspectivePro     = "Pro"
	PerspectiveAgainst = "Contra"
)

// OutcomeLabels returns the localized outcome vocabulary in display order.
func OutcomeLabels() []string {
	return []string{OutcomeLabelSuccess, OutcomeLabelFailure}
}

// CanonicalOutcome maps a localized outcome label to the stored value. The
// second return is false for labels outside the vocabulary.
func CanonicalOutcome(label string) (string, bool) {
	switch label {
	case OutcomeLabelSuccess:
		return "Successful", true
	case OutcomeLabelFailure:
		return "Unsuccessful", true
	default:
		return "", false
	}
}

// CanonicalOutcomes translates a localized outcome selection, dropping the
// unconstrained sentinel. Unknown labels pass through untouched so a raw
// canonical value supplied directly still filters.
func CanonicalOutcomes(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == Unconstrained {
			continue
		}
		if canonical, ok := CanonicalOutcome(l); ok {
			out = append(out, canonical)
			continue
		}
		out = append(out, l)
	}
	return out
}

// Normalize strips the unconstrained sentinels from a selection. An empty
// result means the dimension is a pass-through.
func Normalize(selection []string) []string {
	out := make([]string, 0, len(selection))
	for _, s := range selection {
		if s == Unconstrained || s == UnconstrainedQualifiers {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FilterSelection is one set of UI filter dimensions, pre-translation.
type FilterSelection struct {
	EventTypes []string
	Outcomes   []string
	Qualifiers []string
}

// Request is a dynamic (single-metric) ranking request as it arrives from
// the presentation layer.
type Request struct {
	Subject          string
	Perspective      string
	Filter           FilterSelection
	Teams            []string
	Players          []string
	DateFrom         *time.Time
	DateTo           *time.Time
	UseRelatedPlayer bool
	PerGame          bool
	TopN             int
}

// ConversionRequest is an efficiency ranking request with independent
// numerator and denominator filter sets.
type ConversionRequest struct {
	Subject     string
	Perspective string
	Numerator   FilterSelection
	Denominator FilterSelection
	Teams       []string
	Players     []string
	DateFrom    *time.Time
	DateTo      *time.Time
	TopN        int
}

// Entry is one aggregated ranking row.
type Entry struct {
	Subject     string
	Team        string
	Season      int
	TotalGames  int64
	MetricTotal float64
	PerGame     float64
}

// ConversionEntry is one aggregated efficiency row.
type ConversionEntry struct {
	Subject     string
	Season      int
	Numerator   int64
	Denominator int64
	Ratio       float64
}
