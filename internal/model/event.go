package model

type EventKind string

const (
	EventFollow  EventKind = "follow"
	EventBlock   EventKind = "block"
	EventPost    EventKind = "post"
	EventPrivacy EventKind = "privacy"
)

// MutationEvent is raised by the CRUD side whenever an edge, a post or a
// privacy flag changes. ActorID is the follower/blocker/author/owner;
// TargetID is the followee/blocked identity, the new post id for post
// events, and empty otherwise.
type MutationEvent struct {
	Kind     EventKind `json:"kind"`
	ActorID  string    `json:"actor_id"`
	TargetID string    `json:"target_id,omitempty"`
}
