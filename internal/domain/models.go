package domain

// GameRecord is one game in the user's collection. BestWith and
// RecommendedWith stay empty until an enrichment patch for the same ID
// arrives.
type GameRecord struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BestWith        []int  `json:"bestWith"`
	RecommendedWith []int  `json:"recommendedWith"`
}

// EnrichmentRecord is a partial update for a single game as delivered by the
// recommendation stream. A nil slice means the field was absent from the wire
// record and the matching GameRecord field must be left untouched.
type EnrichmentRecord struct {
	ID              string `json:"id"`
	BestWith        []int  `json:"bestWith,omitempty"`
	RecommendedWith []int  `json:"recommendedWith,omitempty"`
}

// PlayerRange is an inclusive player-count window.
type PlayerRange struct {
	Min int
	Max int
}

// Contains reports whether n falls inside the range.
func (r PlayerRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}
