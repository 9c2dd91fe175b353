package request

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/idgen"
	"github.com/karmanspace/tracker/internal/team"
)

var fixedTime = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestGraph() *Graph {
	return NewGraph(WithClock(func() time.Time { return fixedTime }))
}

func mustBuild(t *testing.T, b *Builder) Request {
	t.Helper()
	r, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return r
}

func mustCheck(t *testing.T, g *Graph) {
	t.Helper()
	if err := g.Check(); err != nil {
		t.Fatalf("Check() = %v", err)
	}
}

// cpuTree builds:
//
//	#1 Systems -> Avionics
//	  #2 Avionics -> Structures
//	    #3 Structures -> Propulsion
func cpuTree(t *testing.T) *Graph {
	t.Helper()
	g := newTestGraph()
	mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("How many CPUS are you using?"))
	mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).ToSolve(1).
		WithQuery("What's the diameter of the inner tube where the CPUs sit?"))
	mustBuild(t, New(team.Structures, team.Propulsion).InGraph(g).ToSolve(2).
		WithQuery("How hot does the engine bay get?"))
	return g
}

func ids(reqs []Request) []ID {
	out := make([]ID, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestBuild_RootAndBranch(t *testing.T) {
	g := newTestGraph()

	root := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("How many CPUS are you using?"))
	if root.ID != 1 {
		t.Errorf("root.ID = %d, want 1", root.ID)
	}
	if !root.IsRoot() || !root.IsTip() {
		t.Errorf("new root IsRoot=%v IsTip=%v, want true true", root.IsRoot(), root.IsTip())
	}

	branch := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).ToSolve(root.ID).WithQuery("Tube diameter?"))
	if branch.Source != root.ID {
		t.Errorf("branch.Source = %v, want %v", branch.Source, root.ID)
	}

	got, _ := g.Get(root.ID)
	if diff := cmp.Diff([]ID{branch.ID}, got.Branches); diff != "" {
		t.Errorf("root branches mismatch (-want +got):\n%s", diff)
	}
	if got.IsTip() {
		t.Error("root with a branch IsTip() = true")
	}
	if diff := cmp.Diff([]ID{root.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestBuild_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		build     func(g *Graph) *Builder
		wantCycle bool
	}{
		{
			name: "no graph",
			build: func(*Graph) *Builder {
				return New(team.Systems, team.Avionics).WithQuery("q")
			},
		},
		{
			name: "empty details",
			build: func(g *Graph) *Builder {
				return New(team.Systems, team.Avionics).InGraph(g).WithQuery("   ")
			},
		},
		{
			name: "missing team",
			build: func(g *Graph) *Builder {
				return New("", team.Avionics).InGraph(g).WithQuery("q")
			},
		},
		{
			name: "source direction mismatch",
			build: func(g *Graph) *Builder {
				return New(team.Structures, team.Sponsorship).InGraph(g).ToSolve(1).
					WithQuery("This is unrelated. Why are you trying to add it here?")
			},
		},
		{
			name: "unknown source",
			build: func(g *Graph) *Builder {
				return New(team.Avionics, team.Structures).InGraph(g).ToSolve(99).WithQuery("q")
			},
		},
		{
			name: "branch direction mismatch",
			build: func(g *Graph) *Builder {
				return New(team.Sponsorship, team.Systems).InGraph(g).WithBranch(2).WithQuery("q")
			},
		},
		{
			name: "unknown branch",
			build: func(g *Graph) *Builder {
				return New(team.Sponsorship, team.Systems).InGraph(g).WithBranch(42).WithQuery("q")
			},
		},
		{
			name: "duplicate branch",
			build: func(g *Graph) *Builder {
				return New(team.Propulsion, team.Structures).InGraph(g).WithBranches(3, 3).WithQuery("q")
			},
		},
		{
			name: "branch is ancestor of source",
			build: func(g *Graph) *Builder {
				// #2 is Avionics->Structures and an ancestor of #3.
				return New(team.Propulsion, team.Avionics).InGraph(g).ToSolve(3).WithBranch(2).WithQuery("q")
			},
			wantCycle: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := cpuTree(t)
			before := g.String()
			allocBefore := g.Allocator().Snapshot()

			_, err := tt.build(g).Build()
			if err == nil {
				t.Fatal("Build() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("Build() error = %v, want ErrInvalidRequest", err)
			}
			if tt.wantCycle && !errors.Is(err, errors.ErrCycle) {
				t.Errorf("Build() error = %v, want ErrCycle", err)
			}
			if after := g.String(); after != before {
				t.Errorf("graph changed after rejected Build():\n%s", after)
			}
			if got := g.Allocator().Snapshot(); got != allocBefore {
				t.Errorf("allocator advanced to %d after rejected Build(), want %d", got, allocBefore)
			}
			mustCheck(t, g)
		})
	}
}

func TestBuild_WithBranchesAdoptsExisting(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).WithQuery("Tube diameter?"))
	b := mustBuild(t, New(team.Avionics, team.Propulsion).InGraph(g).WithQuery("Engine vibration?"))

	parent := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).
		WithBranches(a.ID, b.ID).WithQuery("Can the flight computer survive launch?"))

	if diff := cmp.Diff([]ID{parent.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ID{a.ID, b.ID}, parent.Branches); diff != "" {
		t.Errorf("Branches mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestBuild_BranchMovesFromOtherParent(t *testing.T) {
	g := cpuTree(t)
	// #3 Structures->Propulsion currently sits under #2.
	n := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).ToSolve(1).WithBranch(3).WithQuery("Thermal margins?"))

	two, _ := g.Get(2)
	if !two.IsTip() {
		t.Errorf("#2 Branches = %v, want none", two.Branches)
	}
	three, _ := g.Get(3)
	if three.Source != n.ID {
		t.Errorf("#3 Source = %v, want %v", three.Source, n.ID)
	}
	mustCheck(t, g)
}

func TestBuild_SkipsLiveIDsAfterWrap(t *testing.T) {
	g := NewGraph(WithAllocator(idgen.New(0)))
	mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("first"))
	mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("second"))

	g.Allocator().Init(0)
	r := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("third"))
	if r.ID != 3 {
		t.Errorf("ID = %d, want 3 (ids 1 and 2 are live)", r.ID)
	}
}

func TestSetSource(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("a"))
	b := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("b"))
	c := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).ToSolve(a.ID).WithQuery("c"))

	if err := g.SetSource(c.ID, b.ID); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	ga, _ := g.Get(a.ID)
	gb, _ := g.Get(b.ID)
	if !ga.IsTip() {
		t.Errorf("old parent still lists branch: %v", ga.Branches)
	}
	if diff := cmp.Diff([]ID{c.ID}, gb.Branches); diff != "" {
		t.Errorf("new parent branches mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)

	if err := g.SetSource(c.ID, b.ID); err != nil {
		t.Errorf("SetSource() to same parent error = %v", err)
	}
	gb, _ = g.Get(b.ID)
	if len(gb.Branches) != 1 {
		t.Errorf("repeat SetSource() duplicated branch: %v", gb.Branches)
	}

	if err := g.SetSource(c.ID, NoID); err != nil {
		t.Fatalf("SetSource(NoID) error = %v", err)
	}
	gc, _ := g.Get(c.ID)
	if !gc.IsRoot() {
		t.Error("SetSource(NoID) did not make a root")
	}
	if diff := cmp.Diff([]ID{a.ID, b.ID, c.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestSetSource_RootToBranch(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("a"))
	b := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).WithQuery("b"))

	if err := g.SetSource(b.ID, a.ID); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	if diff := cmp.Diff([]ID{a.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestSetSource_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		id     ID
		parent ID
	}{
		{"unknown node", 99, 1},
		{"unknown parent", 2, 99},
		{"direction mismatch", 2, 3},
		{"descendant as parent", 1, 3},
		{"self", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := cpuTree(t)
			before := g.String()

			err := g.SetSource(tt.id, tt.parent)
			if err == nil {
				t.Fatal("SetSource() error = nil, want error")
			}
			if !errors.IsInvalidRequest(err) {
				t.Errorf("SetSource() error = %v, want invalid request", err)
			}
			if g.String() != before {
				t.Error("graph changed after rejected SetSource()")
			}
		})
	}
}

func TestSetSource_CycleDetected(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Avionics, team.Avionics).InGraph(g).WithQuery("a"))
	b := mustBuild(t, New(team.Avionics, team.Avionics).InGraph(g).ToSolve(a.ID).WithQuery("b"))
	c := mustBuild(t, New(team.Avionics, team.Avionics).InGraph(g).ToSolve(b.ID).WithQuery("c"))

	err := g.SetSource(a.ID, c.ID)
	if !errors.Is(err, errors.ErrCycle) {
		t.Fatalf("SetSource() error = %v, want ErrCycle", err)
	}
	mustCheck(t, g)
}

func TestAddBranch(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("a"))
	b := mustBuild(t, New(team.Avionics, team.Structures).InGraph(g).WithQuery("b"))

	if err := g.AddBranch(a.ID, b.ID); err != nil {
		t.Fatalf("AddBranch() error = %v", err)
	}
	if diff := cmp.Diff([]ID{a.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	if err := g.AddBranch(a.ID, b.ID); err != nil {
		t.Errorf("repeat AddBranch() error = %v", err)
	}
	ga, _ := g.Get(a.ID)
	if diff := cmp.Diff([]ID{b.ID}, ga.Branches); diff != "" {
		t.Errorf("Branches mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestAddBranch_DirectionMismatch(t *testing.T) {
	g := newTestGraph()
	a := mustBuild(t, New(team.Systems, team.Avionics).InGraph(g).WithQuery("a"))
	b := mustBuild(t, New(team.Propulsion, team.Structures).InGraph(g).WithQuery("b"))

	err := g.AddBranch(a.ID, b.ID)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("AddBranch() error = %v, want ErrInvalidRequest", err)
	}
	if diff := cmp.Diff([]ID{a.ID, b.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() changed (-want +got):\n%s", diff)
	}
}

func TestRemoveBranch(t *testing.T) {
	g := cpuTree(t)

	if !g.RemoveBranch(1, 2) {
		t.Fatal("RemoveBranch() = false, want true")
	}
	if g.RemoveBranch(1, 2) {
		t.Error("second RemoveBranch() = true, want false")
	}
	if g.RemoveBranch(3, 1) {
		t.Error("RemoveBranch() of non-branch = true, want false")
	}

	if diff := cmp.Diff([]ID{1, 2}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, g)
}

func TestEditDetails(t *testing.T) {
	g := cpuTree(t)

	if err := g.EditDetails(2, "  What is the tube's inner diameter?  "); err != nil {
		t.Fatalf("EditDetails() error = %v", err)
	}
	r, _ := g.Get(2)
	if r.Details != "What is the tube's inner diameter?" {
		t.Errorf("Details = %q", r.Details)
	}
	if err := g.EditDetails(2, ""); err == nil {
		t.Error("EditDetails(empty) error = nil, want error")
	}
	if err := g.EditDetails(77, "x"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("EditDetails(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestResolve_Cascades(t *testing.T) {
	g := cpuTree(t)
	other := mustBuild(t, New(team.Propulsion, team.Sponsorship).InGraph(g).WithQuery("What engine do we have money for?"))

	rec, err := g.Resolve(2, "42mm")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if g.Has(2) || g.Has(3) {
		t.Error("resolved subtree is still live")
	}
	root, _ := g.Get(1)
	if !root.IsTip() {
		t.Errorf("parent still lists resolved branch: %v", root.Branches)
	}
	if diff := cmp.Diff([]ID{1, other.ID}, ids(g.Roots())); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}

	if rec.Archived.ID != 2 || rec.Solution != "42mm" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Archived.Source != 1 {
		t.Errorf("Archived.Source = %v, want 1", rec.Archived.Source)
	}
	if diff := cmp.Diff([]ID{3}, ids(rec.Cascaded)); diff != "" {
		t.Errorf("Cascaded mismatch (-want +got):\n%s", diff)
	}
	if !rec.ResolvedAt.Equal(fixedTime) {
		t.Errorf("ResolvedAt = %v, want %v", rec.ResolvedAt, fixedTime)
	}
	if rec.RecordID == "" {
		t.Error("RecordID is empty")
	}

	archive := g.Archive()
	if len(archive) != 1 {
		t.Fatalf("len(Archive()) = %d, want 1", len(archive))
	}
	if g.IsArchiveEmpty() {
		t.Error("IsArchiveEmpty() = true")
	}
	mustCheck(t, g)
}

func TestResolve_Root(t *testing.T) {
	g := cpuTree(t)
	if _, err := g.Resolve(1, "done"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !g.IsEmpty() || g.Len() != 0 {
		t.Errorf("IsEmpty() = %v, Len() = %d after resolving the only root", g.IsEmpty(), g.Len())
	}
	if g.String() != "" {
		t.Errorf("String() = %q, want empty", g.String())
	}
}

func TestResolve_Unknown(t *testing.T) {
	g := cpuTree(t)
	if _, err := g.Resolve(9, "x"); err == nil {
		t.Fatal("Resolve(unknown) error = nil, want error")
	}
	if !g.IsArchiveEmpty() {
		t.Error("failed Resolve() archived something")
	}
}

func TestClearOperations(t *testing.T) {
	g := cpuTree(t)
	if _, err := g.Resolve(3, "hot"); err != nil {
		t.Fatal(err)
	}

	g.ClearMetadata()
	if got := g.Allocator().Snapshot(); got != 2 {
		t.Errorf("allocator after ClearMetadata() = %d, want 2", got)
	}

	g.ClearArchive()
	if !g.IsArchiveEmpty() {
		t.Error("ClearArchive() left records")
	}
	if g.IsEmpty() {
		t.Error("ClearArchive() touched the graph")
	}

	g.ClearGraph()
	if !g.IsEmpty() || g.Len() != 0 {
		t.Error("ClearGraph() left requests")
	}
	g.ClearMetadata()
	if got := g.Allocator().Snapshot(); got != 0 {
		t.Errorf("allocator after ClearMetadata() on empty graph = %d, want 0", got)
	}
	mustCheck(t, g)
}

func TestCheck_DetectsCorruption(t *testing.T) {
	g := cpuTree(t)
	g.roots = append(g.roots, 3)

	if err := g.Check(); err == nil {
		t.Error("Check() = nil for a node that is both a root and a branch")
	}
}
