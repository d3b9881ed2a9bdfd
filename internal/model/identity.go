package model

// InterestVector is the derived personalization embedding of an identity.
type InterestVector struct {
	IdentityID string    `json:"identity_id"`
	Embedding  []float32 `json:"embedding"`
	Sources    int       `json:"sources"`
	Mtime      int64     `json:"mtime"`
}

// FeedProfile stores per-identity scoring weight overrides.
type FeedProfile struct {
	IdentityID string  `json:"identity_id"`
	Similarity float64 `json:"similarity"`
	Temporal   float64 `json:"temporal"`
	Diversity  float64 `json:"diversity"`
	Engagement float64 `json:"engagement"`
	Privacy    float64 `json:"privacy"`
	Mtime      int64   `json:"mtime"`
}

// SavedItem is one save action of an identity.
type SavedItem struct {
	IdentityID string `json:"identity_id"`
	ContentID  string `json:"content_id"`
	Ctime      int64  `json:"ctime"`
}
