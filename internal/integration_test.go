// Package internal holds tests that wire several tracker packages together:
// the tracker over a storage gateway, the event bus and the notice outbox.
package internal

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/event"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/notify"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/team"
	"github.com/karmanspace/tracker/internal/testutil"
	"github.com/karmanspace/tracker/internal/tracker"
)

func TestSolveNotifiesBothTeams(t *testing.T) {
	ctx := context.Background()
	gw, _ := testutil.NewGateway(t)
	bus := event.NewBus(logging.NopLogger())

	box := notify.NewOutbox(notify.NewStore(""), team.Default())
	box.Attach(bus)
	defer box.Detach()

	var (
		mu   sync.Mutex
		seen []string
	)
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType())
	})

	trk, err := tracker.New(ctx, gw, tracker.WithBus(bus), tracker.WithTeams(team.Default()))
	require.NoError(t, err)

	root, err := trk.Create(ctx, tracker.Spec{Requester: team.Systems, Requestee: team.Avionics, Details: "How many CPUs?"})
	require.NoError(t, err)
	branch, err := trk.Create(ctx, tracker.Spec{Requester: team.Avionics, Requestee: team.Structures, Details: "Board mounts?", Source: root.ID})
	require.NoError(t, err)

	_, err = trk.Resolve(ctx, branch.ID, "Four M3 bolts")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{
		event.TypeRequestCreated,
		event.TypeRequestCreated,
		event.TypeRequestResolved,
	}, seen)
	mu.Unlock()

	asker, err := box.Pending(team.Avionics)
	require.NoError(t, err)
	require.Len(t, asker, 1)
	assert.Equal(t, "Solution: Four M3 bolts", asker[0].Body)

	waiting, err := box.Pending(team.Systems)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, notify.ReasonWaiting, waiting[0].Reason)
	assert.Contains(t, waiting[0].Body, "which #1 was waiting on")
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	gw, _ := testutil.NewGateway(t)

	first, err := tracker.New(ctx, gw)
	require.NoError(t, err)
	root, err := first.Create(ctx, tracker.Spec{Requester: team.Systems, Requestee: team.Propulsion, Details: "Thrust curve?"})
	require.NoError(t, err)
	branch, err := first.Create(ctx, tracker.Spec{Requester: team.Propulsion, Requestee: team.Structures, Details: "Mount rating?", Source: root.ID})
	require.NoError(t, err)
	_, err = first.Create(ctx, tracker.Spec{Requester: team.Sponsorship, Requestee: team.Systems, Details: "Logo size?"})
	require.NoError(t, err)
	_, err = first.Resolve(ctx, 3, "A4")
	require.NoError(t, err)

	second, err := tracker.New(ctx, gw)
	require.NoError(t, err)

	var (
		rendered string
		archive  []request.ArchiveRecord
	)
	second.View(func(g *request.Graph) {
		rendered = g.String()
		archive = g.Archive()
	})
	first.View(func(g *request.Graph) {
		assert.Equal(t, g.String(), rendered)
	})
	require.Len(t, archive, 1)
	assert.Equal(t, "A4", archive[0].Solution)

	// Numbering continues where the first process stopped.
	next, err := second.Create(ctx, tracker.Spec{Requester: team.Structures, Requestee: team.Avionics, Details: "Wire gauge?", Source: branch.ID})
	require.NoError(t, err)
	assert.Equal(t, request.ID(4), next.ID)
}

func TestSaveFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	gw, blob := testutil.NewGateway(t)
	bus := event.NewBus(logging.NopLogger())

	var failed []event.PersistenceFailedEvent
	bus.Subscribe(event.TypePersistenceFailed, func(e event.Event) {
		failed = append(failed, e.(event.PersistenceFailedEvent))
	})

	trk, err := tracker.New(ctx, gw, tracker.WithBus(bus))
	require.NoError(t, err)

	blob.FailPuts(errors.New("disk full"))
	req, err := trk.Create(ctx, tracker.Spec{Requester: team.Systems, Requestee: team.Avionics, Details: "Power budget?"})
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.Equal(t, request.ID(1), req.ID)
	assert.NotEmpty(t, failed)

	var live int
	trk.View(func(g *request.Graph) { live = g.Len() })
	assert.Equal(t, 1, live)
}

func TestUnsavedSolveQueuesNoNotice(t *testing.T) {
	ctx := context.Background()
	gw, blob := testutil.NewGateway(t)
	bus := event.NewBus(logging.NopLogger())

	outbox := notify.NewStore(t.TempDir())
	box := notify.NewOutbox(outbox, team.Default())
	box.Attach(bus)
	defer box.Detach()

	trk, err := tracker.New(ctx, gw, tracker.WithBus(bus))
	require.NoError(t, err)
	root, err := trk.Create(ctx, tracker.Spec{Requester: team.Systems, Requestee: team.Avionics, Details: "How many CPUs?"})
	require.NoError(t, err)

	blob.FailPuts(errors.New("bucket unavailable"))
	_, err = trk.Resolve(ctx, root.ID, "Two")
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))

	notices, err := outbox.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, notices, "a resolve that was not saved must not notify anyone")

	// A fresh process still sees the request as open.
	blob.FailPuts(nil)
	restarted, err := tracker.New(ctx, gw)
	require.NoError(t, err)
	restarted.View(func(g *request.Graph) {
		assert.True(t, g.Has(root.ID))
		assert.True(t, g.IsArchiveEmpty())
	})
}
