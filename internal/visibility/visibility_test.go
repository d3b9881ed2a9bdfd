package visibility

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mfeed/internal/model"
)

func TestCheck(t *testing.T) {
	const me = "u"
	tests := []struct {
		name      string
		author    string
		following []string
		blocked   []string
		private   map[string]bool
		visible   bool
		relation  Relation
	}{
		{name: "own public", author: me, private: map[string]bool{me: false}, visible: true, relation: RelationSelf},
		{name: "own private", author: me, private: map[string]bool{me: true}, visible: true, relation: RelationSelf},
		{name: "own unknown privacy", author: me, visible: true, relation: RelationSelf},
		{name: "public stranger", author: "a", private: map[string]bool{"a": false}, visible: true, relation: RelationPublic},
		{name: "public followed", author: "a", following: []string{"a"}, private: map[string]bool{"a": false}, visible: true, relation: RelationFollowed},
		{name: "private not followed", author: "a", private: map[string]bool{"a": true}},
		{name: "private followed", author: "a", following: []string{"a"}, private: map[string]bool{"a": true}, visible: true, relation: RelationFollowed},
		{name: "unknown privacy not followed", author: "a"},
		{name: "blocked public", author: "a", blocked: []string{"a"}, private: map[string]bool{"a": false}},
		{name: "blocked followed private", author: "a", following: []string{"a"}, blocked: []string{"a"}, private: map[string]bool{"a": true}},
		{name: "blocked followed public", author: "a", following: []string{"a"}, blocked: []string{"a"}, private: map[string]bool{"a": false}},
		{name: "empty author", author: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, ok := Check(me, tt.author, NewEdges(tt.following, tt.blocked, tt.private))
			require.Equal(t, tt.visible, ok)
			require.Equal(t, tt.relation, rel)
		})
	}
}

func TestCheckNilEdgesFailsClosed(t *testing.T) {
	_, ok := Check("u", "a", nil)
	require.False(t, ok)
}

func TestFilterPrivateAuthorHiddenEvenIfFirst(t *testing.T) {
	items := []model.ContentItem{
		{ID: "p", AuthorID: "private-author"},
		{ID: "q", AuthorID: "public-author"},
		{ID: "r", AuthorID: "u"},
	}
	edges := NewEdges(nil, nil, map[string]bool{"private-author": true, "public-author": false})
	out := Filter("u", items, edges)
	require.Len(t, out, 2)
	require.Equal(t, "q", out[0].Item.ID)
	require.Equal(t, "r", out[1].Item.ID)
	require.Equal(t, RelationSelf, out[1].Relation)
}
