package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns "category.action", e.g. "request.created".
	EventType() string
	Timestamp() time.Time
}

// Event type names.
const (
	TypeRequestCreated    = "request.created"
	TypeRequestMoved      = "request.moved"
	TypeRequestEdited     = "request.edited"
	TypeRequestResolved   = "request.resolved"
	TypeGraphCleared      = "graph.cleared"
	TypePersistenceFailed = "persistence.failed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Request Events
// -----------------------------------------------------------------------------

// RequestCreatedEvent is emitted after a request is inserted into the graph.
type RequestCreatedEvent struct {
	baseEvent
	RequestID int32
	Requester string
	Requestee string
	SourceID  int32 // 0 for a root
}

// NewRequestCreatedEvent creates a RequestCreatedEvent.
func NewRequestCreatedEvent(id int32, requester, requestee string, source int32) RequestCreatedEvent {
	return RequestCreatedEvent{
		baseEvent: newBaseEvent(TypeRequestCreated),
		RequestID: id,
		Requester: requester,
		Requestee: requestee,
		SourceID:  source,
	}
}

// RequestMovedEvent is emitted when a request changes parent, including
// becoming a root (NewSourceID 0).
type RequestMovedEvent struct {
	baseEvent
	RequestID   int32
	OldSourceID int32
	NewSourceID int32
}

// NewRequestMovedEvent creates a RequestMovedEvent.
func NewRequestMovedEvent(id, oldSource, newSource int32) RequestMovedEvent {
	return RequestMovedEvent{
		baseEvent:   newBaseEvent(TypeRequestMoved),
		RequestID:   id,
		OldSourceID: oldSource,
		NewSourceID: newSource,
	}
}

// RequestEditedEvent is emitted when a request's details change.
type RequestEditedEvent struct {
	baseEvent
	RequestID int32
}

// NewRequestEditedEvent creates a RequestEditedEvent.
func NewRequestEditedEvent(id int32) RequestEditedEvent {
	return RequestEditedEvent{baseEvent: newBaseEvent(TypeRequestEdited), RequestID: id}
}

// RequestResolvedEvent is emitted after a request and its subtree leave the
// graph and the request is archived.
type RequestResolvedEvent struct {
	baseEvent
	RequestID       int32
	RecordID        string
	Requester       string
	Requestee       string
	SourceID        int32   // parent at the time of resolution, 0 for a root
	SourceRequester string  // team that asked the parent, empty for a root
	Cascaded        []int32 // descendants dropped with the request
	Solution        string
}

// NewRequestResolvedEvent creates a RequestResolvedEvent.
func NewRequestResolvedEvent(id int32, recordID, requester, requestee string, source int32, cascaded []int32, solution string) RequestResolvedEvent {
	return RequestResolvedEvent{
		baseEvent: newBaseEvent(TypeRequestResolved),
		RequestID: id,
		RecordID:  recordID,
		Requester: requester,
		Requestee: requestee,
		SourceID:  source,
		Cascaded:  cascaded,
		Solution:  solution,
	}
}

// -----------------------------------------------------------------------------
// Administrative Events
// -----------------------------------------------------------------------------

// GraphClearedEvent is emitted by the clear commands. Scope is one of
// "graph", "archive" or "metadata".
type GraphClearedEvent struct {
	baseEvent
	Scope string
}

// NewGraphClearedEvent creates a GraphClearedEvent.
func NewGraphClearedEvent(scope string) GraphClearedEvent {
	return GraphClearedEvent{baseEvent: newBaseEvent(TypeGraphCleared), Scope: scope}
}

// PersistenceFailedEvent is emitted when saving or loading state fails. The
// in-memory graph is still authoritative.
type PersistenceFailedEvent struct {
	baseEvent
	Operation string
	Backend   string
	Err       error
}

// NewPersistenceFailedEvent creates a PersistenceFailedEvent.
func NewPersistenceFailedEvent(operation, backend string, err error) PersistenceFailedEvent {
	return PersistenceFailedEvent{
		baseEvent: newBaseEvent(TypePersistenceFailed),
		Operation: operation,
		Backend:   backend,
		Err:       err,
	}
}
