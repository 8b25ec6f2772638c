package sim

import (
	"github.com/elliotchance/orderedmap/v2"
)

// IgnorePair marks two actors whose shapes never generate contacts against
// each other.
type IgnorePair struct {
	A *ActorHandle
	B *ActorHandle
}

// SetIgnoreCollisionPairTable replaces the pair filter wholesale. Lookups
// are O(1); the ordered map keeps table iteration deterministic. The
// iteration cache is invalidated.
func (s *Scene) SetIgnoreCollisionPairTable(pairs []IgnorePair) {
	s.ignorePairs = orderedmap.NewOrderedMap[*ActorHandle, map[*ActorHandle]struct{}]()
	for _, p := range pairs {
		if !p.A.Valid() || !p.B.Valid() {
			continue
		}
		s.addIgnorePair(p.A, p.B)
		s.addIgnorePair(p.B, p.A)
	}
	s.recreateIterationCache = true
}

func (s *Scene) addIgnorePair(a, b *ActorHandle) {
	set, ok := s.ignorePairs.Get(a)
	if !ok {
		set = make(map[*ActorHandle]struct{})
		s.ignorePairs.Set(a, set)
	}
	set[b] = struct{}{}
}

// SetIgnoreCollisionActors replaces the set of actors exempt from all
// collision. The iteration cache is invalidated.
func (s *Scene) SetIgnoreCollisionActors(actors []*ActorHandle) {
	s.ignoreActors = make(map[*ActorHandle]struct{}, len(actors))
	for _, h := range actors {
		if h.Valid() {
			s.ignoreActors[h] = struct{}{}
		}
	}
	s.recreateIterationCache = true
}

// collisionFiltered reports whether the pair of actors at slots i and j is
// exempt from contact generation. Consulted during pair enumeration only;
// the pipeline never mutates the tables.
func (s *Scene) collisionFiltered(i, j int) bool {
	ha, hb := s.actorHandles[i], s.actorHandles[j]
	if _, ok := s.ignoreActors[ha]; ok {
		return true
	}
	if _, ok := s.ignoreActors[hb]; ok {
		return true
	}
	if set, ok := s.ignorePairs.Get(ha); ok {
		if _, hit := set[hb]; hit {
			return true
		}
	}
	return false
}
