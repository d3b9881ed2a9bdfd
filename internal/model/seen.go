package model

type SeenRecord struct {
	IdentityID string `json:"identity_id"`
	ContentID  string `json:"content_id"`
	SeenAt     int64  `json:"seen_at"`
}
