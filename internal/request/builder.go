package request

import (
	"strings"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/team"
)

// Builder collects the parameters of a new request.
//
//	req, err := request.New(team.Systems, team.Avionics).
//		WithQuery("How many CPUs are you using?").
//		InGraph(g).
//		Build()
type Builder struct {
	requester team.Team
	requestee team.Team
	details   string
	graph     *Graph
	source    ID
	branches  []ID
}

// New starts a request from requester to requestee.
func New(requester, requestee team.Team) *Builder {
	return &Builder{requester: requester, requestee: requestee}
}

// WithQuery sets the question text.
func (b *Builder) WithQuery(details string) *Builder {
	b.details = details
	return b
}

// InGraph sets the graph the request is inserted into.
func (b *Builder) InGraph(g *Graph) *Builder {
	b.graph = g
	return b
}

// ToSolve makes the request a branch of source.
func (b *Builder) ToSolve(source ID) *Builder {
	b.source = source
	return b
}

// WithBranch adds an existing request the new one waits on.
func (b *Builder) WithBranch(id ID) *Builder {
	b.branches = append(b.branches, id)
	return b
}

// WithBranches adds several existing requests the new one waits on.
func (b *Builder) WithBranches(ids ...ID) *Builder {
	b.branches = append(b.branches, ids...)
	return b
}

// Build validates the parameters, assigns an id and inserts the request. On
// failure nothing in the graph changes and no id is consumed.
func (b *Builder) Build() (Request, error) {
	g := b.graph
	if g == nil {
		return Request{}, errors.NewInvalidRequestError("no graph given", errors.ErrInvalidRequest).WithField("graph")
	}
	if err := b.validate(); err != nil {
		return Request{}, err
	}

	id := g.nextID()
	g.nodes[id] = &node{
		id:        id,
		requester: b.requester,
		requestee: b.requestee,
		details:   strings.TrimSpace(b.details),
	}
	g.attach(id, b.source)
	for _, br := range b.branches {
		g.detach(br)
		g.attach(br, id)
	}
	return g.snapshot(id), nil
}

func (b *Builder) validate() error {
	g := b.graph
	if b.requester == "" || b.requestee == "" {
		return errors.NewInvalidRequestError("requester and requestee are required", errors.ErrInvalidRequest).WithField("team")
	}
	if strings.TrimSpace(b.details) == "" {
		return errors.NewInvalidRequestError("details must not be empty", errors.ErrInvalidRequest).WithField("details")
	}

	if b.source != NoID {
		src, err := g.lookup(b.source, "source")
		if err != nil {
			return err
		}
		if src.requestee != b.requester {
			return errors.NewInvalidRequestError(
				"requester "+string(b.requester)+" must match the source's requestee "+string(src.requestee),
				errors.ErrInvalidRequest,
			).WithRelated(int32(b.source)).WithField("source")
		}
	}

	seen := make(map[ID]bool, len(b.branches))
	for _, br := range b.branches {
		n, err := g.lookup(br, "branch")
		if err != nil {
			return err
		}
		if seen[br] {
			return errors.NewInvalidRequestError("branch listed twice", errors.ErrInvalidRequest).
				WithRelated(int32(br)).WithField("branch")
		}
		seen[br] = true
		if n.requester != b.requestee {
			return errors.NewInvalidRequestError(
				"branch requester "+string(n.requester)+" must match the requestee "+string(b.requestee),
				errors.ErrInvalidRequest,
			).WithRelated(int32(br)).WithField("branch")
		}
		if b.source != NoID && g.isAncestorOrSelf(br, b.source) {
			return errors.NewInvalidRequestError("branch is the source or one of its ancestors", errors.ErrCycle).
				WithRelated(int32(br)).WithField("branch")
		}
	}
	return nil
}
