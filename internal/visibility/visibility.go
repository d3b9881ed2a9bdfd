// Package visibility decides whether a requester may see a piece of content.
// It is a pure predicate over an Edges snapshot and is shared by every
// candidate source.
package visibility

import "github.com/xxxsen/mfeed/internal/model"

// Relation describes why a candidate is visible.
type Relation int

const (
	RelationNone Relation = iota
	RelationSelf
	RelationFollowed
	RelationPublic
)

func (r Relation) String() string {
	switch r {
	case RelationSelf:
		return "self"
	case RelationFollowed:
		return "followed"
	case RelationPublic:
		return "public"
	}
	return "none"
}

// Edges is the requester-centric view of the visibility relations.
//
// Following holds authors the requester actively follows. Blocked holds
// identities with an active block in either direction. Private maps author
// ids to their profile privacy flag; an author missing from Private is
// treated as private.
type Edges struct {
	Following map[string]struct{}
	Blocked   map[string]struct{}
	Private   map[string]bool
}

func NewEdges(following, blocked []string, private map[string]bool) *Edges {
	e := &Edges{
		Following: make(map[string]struct{}, len(following)),
		Blocked:   make(map[string]struct{}, len(blocked)),
		Private:   private,
	}
	for _, id := range following {
		e.Following[id] = struct{}{}
	}
	for _, id := range blocked {
		e.Blocked[id] = struct{}{}
	}
	if e.Private == nil {
		e.Private = map[string]bool{}
	}
	return e
}

func (e *Edges) follows(author string) bool {
	_, ok := e.Following[author]
	return ok
}

func (e *Edges) blocked(author string) bool {
	_, ok := e.Blocked[author]
	return ok
}

func (e *Edges) public(author string) bool {
	private, known := e.Private[author]
	return known && !private
}

// Check applies the rules in order and stops on the first decision:
// block either way, authored by requester, public author, private author
// followed by requester, otherwise hidden.
func Check(requester, author string, e *Edges) (Relation, bool) {
	if e == nil || author == "" {
		return RelationNone, false
	}
	if e.blocked(author) {
		return RelationNone, false
	}
	if author == requester {
		return RelationSelf, true
	}
	if e.public(author) {
		if e.follows(author) {
			return RelationFollowed, true
		}
		return RelationPublic, true
	}
	if e.follows(author) {
		return RelationFollowed, true
	}
	return RelationNone, false
}

type Visible struct {
	Item     model.ContentItem
	Relation Relation
}

// Filter keeps the items requester may see, preserving input order.
func Filter(requester string, items []model.ContentItem, e *Edges) []Visible {
	out := make([]Visible, 0, len(items))
	for _, item := range items {
		rel, ok := Check(requester, item.AuthorID, e)
		if !ok {
			continue
		}
		out = append(out, Visible{Item: item, Relation: rel})
	}
	return out
}
