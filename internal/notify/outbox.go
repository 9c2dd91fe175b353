// Package notify queues notices for teams whose requests were answered.
//
// When a request is resolved, two teams care: the team that asked it, and
// the team that asked the request it was helping to solve. The [Outbox]
// listens for request.resolved events and records a [Notice] for each, with
// the contact address from the team directory. Nothing is sent; the notices
// are listed by "tracker outbox" for someone to forward.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karmanspace/tracker/internal/event"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/team"
)

// Reason says why a team receives a notice.
type Reason string

const (
	// ReasonAsked goes to the team that asked the resolved request.
	ReasonAsked Reason = "asked"
	// ReasonWaiting goes to the team that asked the parent request.
	ReasonWaiting Reason = "waiting"
)

// Notice is a pending message to one team.
type Notice struct {
	ID        string    `json:"id"`
	Team      team.Team `json:"team"`
	Email     string    `json:"email"`
	Reason    Reason    `json:"reason"`
	RequestID int32     `json:"request_id"`
	RecordID  string    `json:"record_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Outbox turns resolution events into notices.
type Outbox struct {
	store  *Store
	teams  *team.Directory
	logger *logging.Logger
	now    func() time.Time
	subID  string
	bus    *event.Bus
}

// Option configures an Outbox.
type Option func(*Outbox)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(o *Outbox) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source for notice timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Outbox) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOutbox creates an Outbox writing to store. A nil teams directory uses
// the built-in teams.
func NewOutbox(store *Store, teams *team.Directory, opts ...Option) *Outbox {
	if teams == nil {
		teams = team.Default()
	}
	o := &Outbox{
		store:  store,
		teams:  teams,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attach subscribes the outbox to request.resolved events on bus. Calling
// it again moves the subscription.
func (o *Outbox) Attach(bus *event.Bus) {
	o.Detach()
	o.bus = bus
	o.subID = bus.Subscribe(event.TypeRequestResolved, func(e event.Event) {
		if ev, ok := e.(event.RequestResolvedEvent); ok {
			o.handleResolved(ev)
		}
	})
}

// Detach removes the subscription added by Attach.
func (o *Outbox) Detach() {
	if o.bus != nil {
		o.bus.Unsubscribe(o.subID)
		o.bus = nil
	}
}

func (o *Outbox) handleResolved(ev event.RequestResolvedEvent) {
	for _, n := range o.Compose(ev) {
		if err := o.store.Append(n); err != nil {
			o.logger.WithRequest(ev.RequestID).Warn("failed to queue notice", "team", string(n.Team), "error", err.Error())
			continue
		}
		o.logger.WithTeam(string(n.Team)).WithRequest(ev.RequestID).Info("notice queued",
			"email", n.Email,
			"reason", string(n.Reason),
		)
	}
}

// Compose builds the notices for a resolution without storing them. A team
// that both asked the request and waits on its parent gets one notice.
func (o *Outbox) Compose(ev event.RequestResolvedEvent) []Notice {
	at := o.now()
	subject := fmt.Sprintf("Request #%d answered by %s", ev.RequestID, ev.Requestee)

	var out []Notice
	add := func(name string, reason Reason, body string) {
		if name == "" {
			return
		}
		for _, n := range out {
			if string(n.Team) == name {
				return
			}
		}
		t := team.Team(name)
		out = append(out, Notice{
			ID:        uuid.NewString(),
			Team:      t,
			Email:     o.teams.Email(t),
			Reason:    reason,
			RequestID: ev.RequestID,
			RecordID:  ev.RecordID,
			Subject:   subject,
			Body:      body,
			Timestamp: at,
		})
	}

	add(ev.Requester, ReasonAsked, "Solution: "+ev.Solution)
	if ev.SourceID != 0 {
		add(ev.SourceRequester, ReasonWaiting,
			fmt.Sprintf("Request #%d, which #%d was waiting on, has been answered.\nSolution: %s", ev.RequestID, ev.SourceID, ev.Solution))
	}
	return out
}

// Pending returns the notices queued for a team.
func (o *Outbox) Pending(t team.Team) ([]Notice, error) {
	return o.store.ReadTeam(string(t))
}

// All returns every queued notice, oldest first.
func (o *Outbox) All() ([]Notice, error) {
	return o.store.ReadAll()
}
