package model

const (
	EdgeStateActive   = 1
	EdgeStateInactive = 0
)

type FollowEdge struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
	State      int    `json:"state"`
	Mtime      int64  `json:"mtime"`
}

type BlockEdge struct {
	BlockerID string `json:"blocker_id"`
	BlockedID string `json:"blocked_id"`
	State     int    `json:"state"`
	Mtime     int64  `json:"mtime"`
}
