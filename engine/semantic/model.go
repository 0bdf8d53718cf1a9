package semantic

// GuideRecord is one completed-repair summary vector to store.
type GuideRecord struct {
	ID        string
	Embedding []float32
	Summary   string
	Category  string
	Model     string
	Steps     int
	CreatedAt int64
}

// GuideHit is a single similarity-search match.
type GuideHit struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Summary  string  `json:"summary"`
	Category string  `json:"category"`
	Model    string  `json:"model"`
}
