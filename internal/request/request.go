// Package request implements the dependency forest of cross-team requests.
//
// A request is a question one team (the requester) asks another (the
// requestee). Answering it may depend on branch requests, each asked by the
// requestee of its parent. Requests with no parent are roots; requests with no
// branches are tips. The live requests form a forest owned by a [Graph].
//
// # Representation
//
// The graph stores nodes in an arena keyed by [ID] and keeps the relationships
// in separate indexes: the parent of every non-root, the ordered branch list of
// every node, and the ordered list of roots. Callers never hold references
// into the arena; they work with ids and receive [Request] snapshots.
//
// # Invariants
//
// Every mutation validates before touching any index, so a rejected call
// leaves the graph unchanged:
//
//   - a node's requester is its parent's requestee
//   - every branch's requester is its parent's requestee
//   - a live node is either a root or in exactly one parent's branch list
//   - following parents upward always ends at a root
//
// [Graph.Check] re-verifies all of them.
package request

import (
	"fmt"
	"slices"

	"github.com/karmanspace/tracker/internal/search"
	"github.com/karmanspace/tracker/internal/team"
)

// ID identifies a request within a graph.
type ID int32

// NoID is the zero id. It is never issued and marks an absent parent.
const NoID ID = 0

// String returns the id formatted as "#n".
func (id ID) String() string {
	return fmt.Sprintf("#%d", int32(id))
}

// Request is a read-only snapshot of a live node.
type Request struct {
	ID        ID        `json:"id"`
	Requester team.Team `json:"requester"`
	Requestee team.Team `json:"requestee"`
	Details   string    `json:"details"`
	Source    ID        `json:"source,omitempty"`
	Branches  []ID      `json:"branches,omitempty"`
}

// IsRoot reports whether the request has no parent.
func (r Request) IsRoot() bool {
	return r.Source == NoID
}

// IsTip reports whether the request waits on nothing.
func (r Request) IsTip() bool {
	return len(r.Branches) == 0
}

// MatchPercentage scores the request's details against a keyword query.
func (r Request) MatchPercentage(query string) int {
	return search.MatchPercentage(r.Details, query)
}

// Headline renders the request's own line without its branches.
func (r Request) Headline() string {
	kind := "Branch"
	if r.IsRoot() {
		kind = "Root"
	}
	return fmt.Sprintf("%s Request #%d from %s to %s: %s", kind, int32(r.ID), r.Requester, r.Requestee, r.Details)
}

// node is the arena entry. Relationships live in the graph's indexes.
type node struct {
	id        ID
	requester team.Team
	requestee team.Team
	details   string
}

// Direction selects which side of a request a team is on.
type Direction int

const (
	// Sent matches requests the team asked.
	Sent Direction = iota
	// Received matches requests addressed to the team.
	Received
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Sent:
		return "sent"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

// cloneIDs copies an id slice, returning nil for an empty one.
func cloneIDs(ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}
	return slices.Clone(ids)
}
