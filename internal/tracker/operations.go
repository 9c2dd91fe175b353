package tracker

import (
	"context"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/event"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/team"
)

// Spec describes a request to create.
type Spec struct {
	Requester team.Team
	Requestee team.Team
	Details   string
	// Source is the request this one helps solve. NoID creates a root.
	Source request.ID
	// Branches are existing requests the new one waits on.
	Branches []request.ID
}

// Clear scopes.
const (
	ScopeGraph    = "graph"
	ScopeArchive  = "archive"
	ScopeMetadata = "metadata"
)

func (t *Tracker) checkTeam(field string, tm team.Team) error {
	if t.teams == nil || t.teams.Contains(tm) {
		return nil
	}
	return errors.NewValidationError("unknown team").WithField(field).WithValue(string(tm)).
		WithCause(errors.ErrInvalidInput)
}

// Create inserts a new request. A returned persistence error means the
// request exists in memory but was not saved.
func (t *Tracker) Create(ctx context.Context, spec Spec) (request.Request, error) {
	if err := t.checkTeam("requester", spec.Requester); err != nil {
		return request.Request{}, err
	}
	if err := t.checkTeam("requestee", spec.Requestee); err != nil {
		return request.Request{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := make(map[request.ID]request.ID, len(spec.Branches))
	for _, b := range spec.Branches {
		if r, ok := t.graph.Get(b); ok {
			prev[b] = r.Source
		}
	}

	req, err := request.New(spec.Requester, spec.Requestee).
		InGraph(t.graph).
		WithQuery(spec.Details).
		ToSolve(spec.Source).
		WithBranches(spec.Branches...).
		Build()
	if err != nil {
		return request.Request{}, err
	}

	t.logger.WithTeam(string(req.Requester)).WithRequest(int32(req.ID)).Info("request created",
		"requestee", string(req.Requestee),
		"source", int32(req.Source),
		"branches", len(req.Branches),
	)
	events := []event.Event{
		event.NewRequestCreatedEvent(int32(req.ID), string(req.Requester), string(req.Requestee), int32(req.Source)),
	}
	for _, b := range req.Branches {
		events = append(events, event.NewRequestMovedEvent(int32(b), int32(prev[b]), int32(req.ID)))
	}
	return req, t.commit(ctx, events...)
}

// Reparent moves id under parent. A parent of NoID makes id a root.
func (t *Tracker) Reparent(ctx context.Context, id, parent request.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	before, _ := t.graph.Get(id)
	if err := t.graph.SetSource(id, parent); err != nil {
		return err
	}
	if before.Source == parent {
		return nil
	}
	return t.moved(ctx, id, before.Source, parent)
}

// MakeRoot detaches id from its parent.
func (t *Tracker) MakeRoot(ctx context.Context, id request.ID) error {
	return t.Reparent(ctx, id, request.NoID)
}

// AddBranch makes child wait under parent.
func (t *Tracker) AddBranch(ctx context.Context, parent, child request.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	before, _ := t.graph.Get(child)
	if err := t.graph.AddBranch(parent, child); err != nil {
		return err
	}
	if before.Source == parent {
		return nil
	}
	return t.moved(ctx, child, before.Source, parent)
}

// RemoveBranch detaches child from parent, making it a root. It reports
// whether anything changed.
func (t *Tracker) RemoveBranch(ctx context.Context, parent, child request.ID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.graph.RemoveBranch(parent, child) {
		return false, nil
	}
	return true, t.moved(ctx, child, parent, request.NoID)
}

func (t *Tracker) moved(ctx context.Context, id, from, to request.ID) error {
	t.logger.WithRequest(int32(id)).Info("request moved", "from", int32(from), "to", int32(to))
	return t.commit(ctx, event.NewRequestMovedEvent(int32(id), int32(from), int32(to)))
}

// Edit replaces the details of id.
func (t *Tracker) Edit(ctx context.Context, id request.ID, details string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.graph.EditDetails(id, details); err != nil {
		return err
	}
	t.logger.WithRequest(int32(id)).Info("request edited")
	return t.commit(ctx, event.NewRequestEditedEvent(int32(id)))
}

// Resolve archives id with solution and drops its branch subtree.
func (t *Tracker) Resolve(ctx context.Context, id request.ID, solution string) (request.ArchiveRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.graph.Resolve(id, solution)
	if err != nil {
		return request.ArchiveRecord{}, err
	}

	cascaded := make([]int32, 0, len(rec.Cascaded))
	for _, c := range rec.Cascaded {
		cascaded = append(cascaded, int32(c.ID))
	}
	a := rec.Archived
	t.logger.WithTeam(string(a.Requestee)).WithRequest(int32(a.ID)).Info("request resolved",
		"record_id", rec.RecordID,
		"cascaded", len(cascaded),
	)
	ev := event.NewRequestResolvedEvent(
		int32(a.ID), rec.RecordID, string(a.Requester), string(a.Requestee), int32(a.Source), cascaded, rec.Solution,
	)
	if src, ok := t.graph.Get(a.Source); ok {
		ev.SourceRequester = string(src.Requester)
	}
	return rec, t.commit(ctx, ev)
}

// ClearGraph drops every live request.
func (t *Tracker) ClearGraph(ctx context.Context) error {
	return t.clear(ctx, ScopeGraph, (*request.Graph).ClearGraph)
}

// ClearArchive drops every archive record.
func (t *Tracker) ClearArchive(ctx context.Context) error {
	return t.clear(ctx, ScopeArchive, (*request.Graph).ClearArchive)
}

// ClearMetadata resets the id allocator to the highest live id.
func (t *Tracker) ClearMetadata(ctx context.Context) error {
	return t.clear(ctx, ScopeMetadata, (*request.Graph).ClearMetadata)
}

func (t *Tracker) clear(ctx context.Context, scope string, fn func(*request.Graph)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(t.graph)
	t.logger.Info("cleared", "scope", scope)
	return t.commit(ctx, event.NewGraphClearedEvent(scope))
}
