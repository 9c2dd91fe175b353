package request

import (
	"slices"
	"strings"

	"github.com/karmanspace/tracker/internal/search"
	"github.com/karmanspace/tracker/internal/team"
)

// walk visits every live request in pre-order, roots in insertion order.
// Returning false from fn stops the walk.
func (g *Graph) walk(fn func(id ID, depth int) bool) {
	var visit func(id ID, depth int) bool
	visit = func(id ID, depth int) bool {
		if !fn(id, depth) {
			return false
		}
		for _, c := range g.children[id] {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	for _, r := range g.roots {
		if !visit(r, 0) {
			return
		}
	}
}

// All returns every live request in pre-order.
func (g *Graph) All() []Request {
	out := make([]Request, 0, len(g.nodes))
	g.walk(func(id ID, _ int) bool {
		out = append(out, g.snapshot(id))
		return true
	})
	return out
}

// Roots returns the root requests in insertion order.
func (g *Graph) Roots() []Request {
	out := make([]Request, 0, len(g.roots))
	for _, r := range g.roots {
		out = append(out, g.snapshot(r))
	}
	return out
}

// Archive returns the archive records, oldest first.
func (g *Graph) Archive() []ArchiveRecord {
	return slices.Clone(g.archive)
}

// FindByID searches the forest depth-first and returns the request with the
// given id, however deep it sits.
func (g *Graph) FindByID(id ID) (Request, bool) {
	var (
		found Request
		ok    bool
	)
	g.walk(func(cur ID, _ int) bool {
		if cur == id {
			found, ok = g.snapshot(cur), true
			return false
		}
		return true
	})
	return found, ok
}

// FindByDirection returns the requests sent by t (requester) or received by t
// (requestee), in pre-order.
func (g *Graph) FindByDirection(dir Direction, t team.Team) []Request {
	var out []Request
	g.walk(func(id ID, _ int) bool {
		n := g.nodes[id]
		if (dir == Sent && n.requester == t) || (dir == Received && n.requestee == t) {
			out = append(out, g.snapshot(id))
		}
		return true
	})
	return out
}

// SearchRequests ranks live requests against query, best match first.
func (g *Graph) SearchRequests(query string) []search.Scored[Request] {
	return search.Rank(g.All(), func(r Request) int { return r.MatchPercentage(query) })
}

// FindByKeywords returns live requests matching query, best match first.
// Equal scores keep pre-order.
func (g *Graph) FindByKeywords(query string) []Request {
	return items(g.SearchRequests(query))
}

// SearchArchive ranks archive records against query. When bySolution is set
// the solution text is scored instead of the request text.
func (g *Graph) SearchArchive(query string, bySolution bool) []search.Scored[ArchiveRecord] {
	score := ArchiveRecord.MatchPercentage
	if bySolution {
		score = ArchiveRecord.SolutionMatchPercentage
	}
	return search.Rank(g.archive, func(r ArchiveRecord) int { return score(r, query) })
}

// FindInArchive returns archive records whose request text matches query.
func (g *Graph) FindInArchive(query string) []ArchiveRecord {
	return items(g.SearchArchive(query, false))
}

// FindInArchiveSolutions returns archive records whose solution matches query.
func (g *Graph) FindInArchiveSolutions(query string) []ArchiveRecord {
	return items(g.SearchArchive(query, true))
}

// ImmediateProblems returns every tip: the requests that wait on nothing and
// can be answered now.
func (g *Graph) ImmediateProblems() []Request {
	var out []Request
	g.walk(func(id ID, _ int) bool {
		if len(g.children[id]) == 0 {
			out = append(out, g.snapshot(id))
		}
		return true
	})
	return out
}

func items[T any](scored []search.Scored[T]) []T {
	out := make([]T, len(scored))
	for i, s := range scored {
		out[i] = s.Item
	}
	return out
}

// Render returns the tree view of id and its branches, or "" if id is not live.
func (g *Graph) Render(id ID) string {
	if _, ok := g.nodes[id]; !ok {
		return ""
	}
	var b strings.Builder
	g.render(&b, id, 0)
	return b.String()
}

func (g *Graph) render(b *strings.Builder, id ID, depth int) {
	tab := strings.Repeat("\t", depth)
	b.WriteString(tab)
	b.WriteString(g.snapshot(id).Headline())
	branches := g.children[id]
	if len(branches) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(tab)
	b.WriteString("Waiting on: ")
	for _, c := range branches {
		b.WriteString("\n")
		g.render(b, c, depth+1)
	}
}

// String renders every root tree separated by blank lines, with a trailing
// newline. An empty graph renders as "".
func (g *Graph) String() string {
	if len(g.roots) == 0 {
		return ""
	}
	parts := make([]string, len(g.roots))
	for i, r := range g.roots {
		parts[i] = g.Render(r)
	}
	return strings.Join(parts, "\n\n") + "\n"
}
