package request

import (
	"fmt"
	"slices"
	"strings"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/team"
)

// NodeRecord is the persisted form of a live request and its branch subtree.
type NodeRecord struct {
	ID        ID           `json:"id"`
	Requester team.Team    `json:"requester"`
	Requestee team.Team    `json:"requestee"`
	Details   string       `json:"details"`
	Branches  []NodeRecord `json:"branches,omitempty"`
}

// State is everything needed to rebuild a graph.
type State struct {
	Roots     []NodeRecord    `json:"roots"`
	Archive   []ArchiveRecord `json:"archive"`
	Allocator int32           `json:"allocator"`
}

// Export captures the graph as nested root trees, the archive and the
// allocator position.
func (g *Graph) Export() State {
	return State{
		Roots:     g.ExportRoots(),
		Archive:   g.Archive(),
		Allocator: g.alloc.Snapshot(),
	}
}

// ExportRoots captures the live forest as nested records.
func (g *Graph) ExportRoots() []NodeRecord {
	out := make([]NodeRecord, 0, len(g.roots))
	for _, r := range g.roots {
		out = append(out, g.exportNode(r))
	}
	return out
}

func (g *Graph) exportNode(id ID) NodeRecord {
	n := g.nodes[id]
	rec := NodeRecord{
		ID:        n.id,
		Requester: n.requester,
		Requestee: n.requestee,
		Details:   n.details,
	}
	for _, c := range g.children[id] {
		rec.Branches = append(rec.Branches, g.exportNode(c))
	}
	return rec
}

// Restore replaces the graph's contents with s. The records are validated
// first; on error the graph is unchanged. An allocator behind the highest live
// id is moved up to it.
func (g *Graph) Restore(s State) error {
	staged := NewGraph(WithClock(g.now))
	var add func(rec NodeRecord, parent ID) error
	add = func(rec NodeRecord, parent ID) error {
		if rec.ID <= NoID {
			return errors.NewInvalidRequestError("stored request has no id", errors.ErrInvalidRequest).WithField("id")
		}
		if _, dup := staged.nodes[rec.ID]; dup {
			return errors.NewInvalidRequestError("stored request id is used twice", errors.ErrInvalidRequest).
				WithRequestID(int32(rec.ID)).WithField("id")
		}
		if parent != NoID {
			if p := staged.nodes[parent]; p.requestee != rec.Requester {
				return errors.NewInvalidRequestError("stored branch direction is inconsistent", errors.ErrInvalidRequest).
					WithRequestID(int32(rec.ID)).WithRelated(int32(parent)).WithField("source")
			}
		}
		staged.nodes[rec.ID] = &node{
			id:        rec.ID,
			requester: rec.Requester,
			requestee: rec.Requestee,
			details:   rec.Details,
		}
		staged.attach(rec.ID, parent)
		for _, b := range rec.Branches {
			if err := add(b, rec.ID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range s.Roots {
		if err := add(r, NoID); err != nil {
			return err
		}
	}

	seed := s.Allocator
	for id := range staged.nodes {
		seed = max(seed, int32(id))
	}

	g.nodes, g.parent, g.children, g.roots = staged.nodes, staged.parent, staged.children, staged.roots
	g.archive = slices.Clone(s.Archive)
	g.alloc.Init(seed)
	return nil
}

// Check verifies the graph's indexes against its invariants and returns every
// violation found, joined.
func (g *Graph) Check() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	residency := make(map[ID]int, len(g.nodes))
	for _, r := range g.roots {
		residency[r]++
		if _, ok := g.parent[r]; ok {
			fail("root %s has a parent", r)
		}
	}
	for p, cs := range g.children {
		pn, ok := g.nodes[p]
		if !ok {
			fail("branch list for dead request %s", p)
			continue
		}
		for _, c := range cs {
			residency[c]++
			cn, ok := g.nodes[c]
			if !ok {
				fail("%s lists dead branch %s", p, c)
				continue
			}
			if g.parent[c] != p {
				fail("%s lists %s but its parent is %s", p, c, g.parent[c])
			}
			if cn.requester != pn.requestee {
				fail("branch %s requester %s does not match %s requestee %s", c, cn.requester, p, pn.requestee)
			}
		}
	}
	for id := range g.nodes {
		if residency[id] != 1 {
			fail("%s appears %d times in the forest", id, residency[id])
		}
		steps := 0
		for cur := id; ; cur = g.parent[cur] {
			if _, hasParent := g.parent[cur]; !hasParent {
				break
			}
			steps++
			if steps > len(g.nodes) {
				fail("%s does not reach a root", id)
				break
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return errors.NewInvalidRequestError("graph is inconsistent: "+strings.Join(problems, "; "), errors.ErrInvalidRequest)
}
