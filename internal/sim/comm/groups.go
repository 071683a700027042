package comm

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Group is a set of robots connected through chains of successful transmissions.
type Group struct {
	members mapset.Set[int]
}

func newGroup() Group { return Group{members: mapset.New[int]()} }

func (g Group) Has(id int) bool { return g.members.Has(id) }
func (g Group) Size() int       { return g.members.Size() }

// IDs returns the members in ascending order.
func (g Group) IDs() []int {
	ids := make([]int, 0, g.members.Size())
	g.members.Each(func(id int) {
		ids = append(ids, id)
	})
	sort.Ints(ids)
	return ids
}

// linked reports whether a and b can talk in at least one direction. Rays
// grazing a corner may be nudged to different sides per direction, so a
// link can be one-directional.
func linked(adjacency map[Pair]Info, a, b int) bool {
	if info, ok := adjacency[Pair{From: a, To: b}]; ok && info.TransmissionSuccessful {
		return true
	}
	info, ok := adjacency[Pair{From: b, To: a}]
	return ok && info.TransmissionSuccessful
}

// buildGroups partitions ids by breadth-first reachability over links. Every
// id lands in exactly one group; ids are visited in order so the result is
// deterministic.
func buildGroups(ids []int, adjacency map[Pair]Info) []Group {
	var groups []Group
	assigned := mapset.New[int]()
	for _, start := range ids {
		if assigned.Has(start) {
			continue
		}
		g := newGroup()
		g.members.Put(start)
		assigned.Put(start)
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, other := range ids {
				if assigned.Has(other) {
					continue
				}
				if linked(adjacency, cur, other) {
					g.members.Put(other)
					assigned.Put(other)
					queue = append(queue, other)
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}
