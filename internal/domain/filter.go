package domain

import "fmt"

// FilterMode selects which player-count ratings qualify a game.
type FilterMode int

const (
	// BestOnly keeps games rated "best" at some count inside the range.
	BestOnly FilterMode = iota
	// BestOrRecommended also accepts games merely rated "recommended".
	BestOrRecommended
)

// ParseFilterMode maps the query-string values "best" and "recommended".
func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "", "best":
		return BestOnly, nil
	case "recommended":
		return BestOrRecommended, nil
	default:
		return BestOnly, fmt.Errorf("unknown filter mode %q", s)
	}
}

func (m FilterMode) String() string {
	if m == BestOrRecommended {
		return "recommended"
	}
	return "best"
}

// Select returns the games matching the player-count range under the given
// mode. Order is preserved relative to the input; the input is assumed to be
// unique by ID already.
func Select(records []GameRecord, r PlayerRange, mode FilterMode) []GameRecord {
	matched := make([]GameRecord, 0, len(records))
	for _, rec := range records {
		if anyInRange(rec.BestWith, r) {
			matched = append(matched, rec)
			continue
		}
		if mode == BestOrRecommended && anyInRange(rec.RecommendedWith, r) {
			matched = append(matched, rec)
		}
	}
	return matched
}

func anyInRange(counts []int, r PlayerRange) bool {
	for _, n := range counts {
		if r.Contains(n) {
			return true
		}
	}
	return false
}
