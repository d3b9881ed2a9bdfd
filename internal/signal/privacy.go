package signal

import "github.com/xxxsen/mfeed/internal/visibility"

// Privacy affinity per visibility relation. Content from followed authors
// ranks above public strangers; own posts are kept but de-emphasized.
const (
	FollowedAffinity = 1.0
	PublicAffinity   = 0.6
	SelfAffinity     = 0.3
)

func PrivacyAffinity(rel visibility.Relation) float64 {
	switch rel {
	case visibility.RelationFollowed:
		return FollowedAffinity
	case visibility.RelationPublic:
		return PublicAffinity
	case visibility.RelationSelf:
		return SelfAffinity
	}
	return 0
}
