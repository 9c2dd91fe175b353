package request

import (
	"slices"
	"strings"
	"time"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/idgen"
)

// Graph owns a forest of live requests, the archive of resolved ones and the
// id allocator that numbers them. A Graph is not safe for concurrent use.
type Graph struct {
	nodes    map[ID]*node
	parent   map[ID]ID   // child -> parent, absent for roots
	children map[ID][]ID // parent -> ordered branches
	roots    []ID

	archive []ArchiveRecord
	alloc   *idgen.Allocator
	now     func() time.Time
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithAllocator makes the graph issue ids from a.
func WithAllocator(a *idgen.Allocator) GraphOption {
	return func(g *Graph) {
		if a != nil {
			g.alloc = a
		}
	}
}

// WithClock sets the time source used to stamp archive records.
func WithClock(now func() time.Time) GraphOption {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGraph returns an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		nodes:    make(map[ID]*node),
		parent:   make(map[ID]ID),
		children: make(map[ID][]ID),
		alloc:    idgen.New(0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allocator exposes the graph's id allocator.
func (g *Graph) Allocator() *idgen.Allocator {
	return g.alloc
}

// Len returns the number of live requests.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IsEmpty reports whether there are no live requests.
func (g *Graph) IsEmpty() bool {
	return len(g.roots) == 0
}

// IsArchiveEmpty reports whether nothing has been resolved.
func (g *Graph) IsArchiveEmpty() bool {
	return len(g.archive) == 0
}

// Get returns a snapshot of the live request with the given id.
func (g *Graph) Get(id ID) (Request, bool) {
	if _, ok := g.nodes[id]; !ok {
		return Request{}, false
	}
	return g.snapshot(id), true
}

// Has reports whether id is live.
func (g *Graph) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) snapshot(id ID) Request {
	n := g.nodes[id]
	return Request{
		ID:        n.id,
		Requester: n.requester,
		Requestee: n.requestee,
		Details:   n.details,
		Source:    g.parent[id],
		Branches:  cloneIDs(g.children[id]),
	}
}

// lookup returns the node for id or an invalid-request error naming field.
func (g *Graph) lookup(id ID, field string) (*node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, errors.NewInvalidRequestError("request is not live", errors.NewNotFoundError("request", id.String())).
			WithRequestID(int32(id)).WithField(field)
	}
	return n, nil
}

// isAncestorOrSelf reports whether candidate is id or one of its ancestors.
func (g *Graph) isAncestorOrSelf(candidate, id ID) bool {
	for cur := id; cur != NoID; cur = g.parent[cur] {
		if cur == candidate {
			return true
		}
	}
	return false
}

// detach removes id from its parent's branch list or from the roots.
func (g *Graph) detach(id ID) {
	if p, ok := g.parent[id]; ok {
		g.children[p] = slices.DeleteFunc(g.children[p], func(c ID) bool { return c == id })
		if len(g.children[p]) == 0 {
			delete(g.children, p)
		}
		delete(g.parent, id)
		return
	}
	g.roots = slices.DeleteFunc(g.roots, func(r ID) bool { return r == id })
}

// attach appends id under parent, or to the roots when parent is NoID.
// The caller must have detached id first.
func (g *Graph) attach(id, parent ID) {
	if parent == NoID {
		g.roots = append(g.roots, id)
		return
	}
	g.parent[id] = parent
	g.children[parent] = append(g.children[parent], id)
}

// nextID issues the next id that is not held by a live request.
func (g *Graph) nextID() ID {
	for range len(g.nodes) + 1 {
		id := ID(g.alloc.Next())
		if _, live := g.nodes[id]; !live {
			return id
		}
	}
	// Unreachable while fewer than math.MaxInt32 requests are live.
	return ID(g.alloc.Next())
}

// SetSource moves id under parent. A parent of NoID makes id a root.
// The requester of id must be the parent's requestee, and parent must not be
// id or one of its descendants.
func (g *Graph) SetSource(id, parent ID) error {
	n, err := g.lookup(id, "id")
	if err != nil {
		return err
	}
	if parent == NoID {
		g.MakeRoot(id)
		return nil
	}
	p, err := g.lookup(parent, "source")
	if err != nil {
		return err
	}
	if p.requestee != n.requester {
		return errors.NewInvalidRequestError(
			"requester "+string(n.requester)+" must match the source's requestee "+string(p.requestee),
			errors.ErrInvalidRequest,
		).WithRequestID(int32(id)).WithRelated(int32(parent)).WithField("source")
	}
	if g.isAncestorOrSelf(id, parent) {
		return errors.NewInvalidRequestError("source is the request itself or one of its branches", errors.ErrCycle).
			WithRequestID(int32(id)).WithRelated(int32(parent)).WithField("source")
	}
	if cur, ok := g.parent[id]; ok && cur == parent {
		return nil
	}
	g.detach(id)
	g.attach(id, parent)
	return nil
}

// MakeRoot detaches id from its parent and registers it as a root. It is a
// no-op when id is already a root or not live.
func (g *Graph) MakeRoot(id ID) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	if _, hasParent := g.parent[id]; !hasParent {
		return
	}
	g.detach(id)
	g.attach(id, NoID)
}

// AddBranch makes child wait under parent. The child's requester must be the
// parent's requestee. A child that was a root leaves the roots; a child with a
// different parent is detached from it first. Adding an existing branch again
// changes nothing.
func (g *Graph) AddBranch(parent, child ID) error {
	p, err := g.lookup(parent, "id")
	if err != nil {
		return err
	}
	c, err := g.lookup(child, "branch")
	if err != nil {
		return err
	}
	if c.requester != p.requestee {
		return errors.NewInvalidRequestError(
			"branch requester "+string(c.requester)+" must match the requestee "+string(p.requestee),
			errors.ErrInvalidRequest,
		).WithRequestID(int32(parent)).WithRelated(int32(child)).WithField("branch")
	}
	if g.isAncestorOrSelf(child, parent) {
		return errors.NewInvalidRequestError("branch is the request itself or one of its sources", errors.ErrCycle).
			WithRequestID(int32(parent)).WithRelated(int32(child)).WithField("branch")
	}
	if cur, ok := g.parent[child]; ok && cur == parent {
		return nil
	}
	g.detach(child)
	g.attach(child, parent)
	return nil
}

// RemoveBranch detaches child from parent and makes it a root. It reports
// whether anything changed; removing a branch that is not there is a no-op.
func (g *Graph) RemoveBranch(parent, child ID) bool {
	cur, ok := g.parent[child]
	if !ok || cur != parent {
		return false
	}
	g.detach(child)
	g.attach(child, NoID)
	return true
}

// EditDetails replaces the question text of id.
func (g *Graph) EditDetails(id ID, details string) error {
	n, err := g.lookup(id, "id")
	if err != nil {
		return err
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return errors.NewInvalidRequestError("details must not be empty", errors.ErrInvalidRequest).
			WithRequestID(int32(id)).WithField("details")
	}
	n.details = details
	return nil
}

// Resolve removes id and its whole branch subtree from the live graph and
// archives id with the given solution. Branches are dropped, not re-parented;
// they are listed in the record's Cascaded field and get no record of their own.
func (g *Graph) Resolve(id ID, solution string) (ArchiveRecord, error) {
	if _, err := g.lookup(id, "id"); err != nil {
		return ArchiveRecord{}, err
	}

	subtree := g.subtree(id)
	rec := newArchiveRecord(g.snapshot(id), strings.TrimSpace(solution), g.now())
	for _, d := range subtree[1:] {
		rec.Cascaded = append(rec.Cascaded, g.snapshot(d))
	}

	g.detach(id)
	for _, d := range subtree {
		delete(g.nodes, d)
		delete(g.parent, d)
		delete(g.children, d)
	}
	g.archive = append(g.archive, rec)
	return rec, nil
}

// subtree returns id and all of its descendants in pre-order.
func (g *Graph) subtree(id ID) []ID {
	var out []ID
	var walk func(ID)
	walk = func(cur ID) {
		out = append(out, cur)
		for _, c := range g.children[cur] {
			walk(c)
		}
	}
	walk(id)
	return out
}

// ClearGraph drops every live request. The archive and allocator are kept.
func (g *Graph) ClearGraph() {
	g.nodes = make(map[ID]*node)
	g.parent = make(map[ID]ID)
	g.children = make(map[ID][]ID)
	g.roots = nil
}

// ClearArchive drops every archive record.
func (g *Graph) ClearArchive() {
	g.archive = nil
}

// ClearMetadata resets the allocator to the highest live id, so the next
// request is numbered just above what is still open.
func (g *Graph) ClearMetadata() {
	var highest ID
	for id := range g.nodes {
		highest = max(highest, id)
	}
	g.alloc.Init(int32(highest))
}
