package domain

import "time"

// EventType discriminates the queue item payload.
type EventType string

const (
	EventNewIncident  EventType = "new_incident"
	EventUpdate       EventType = "update"
	EventStatusChange EventType = "status_change"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventNewIncident, EventUpdate, EventStatusChange:
		return true
	}
	return false
}

// IncidentStatus values the matcher cares about. Only "ongoing" has
// filter semantics; everything else is treated as not-ongoing.
const StatusOngoing = "ongoing"

// NewIncidentPayload carries the fields of a freshly created incident.
type NewIncidentPayload struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	Severity   string `json:"severity"`
	FireDeptID string `json:"fire_dept_id"`
}

// UpdatePayload carries the free text of an incident update.
type UpdatePayload struct {
	Text string `json:"text"`
}

// StatusChangePayload carries an incident status transition.
type StatusChangePayload struct {
	Title     string `json:"title"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// QueueItem is one entry of the notification event queue. Exactly one of
// the payload pointers is non-nil, selected by EventType. The processed
// flag is monotonic: once set it is never cleared, and the drain reads
// items in ascending creation order.
//
// Items are created by the incident subsystem; this engine only ever flips
// the processed flag.
type QueueItem struct {
	ID           string
	IncidentID   string
	EventType    EventType
	NewIncident  *NewIncidentPayload
	Update       *UpdatePayload
	StatusChange *StatusChangePayload
	Processed    bool
	CreatedAt    time.Time
}

// FireDeptID returns the fire-department id the item references, if its
// payload carries one. Only new_incident payloads do; update and
// status_change events fall back to the incident row's department.
func (q *QueueItem) FireDeptID() string {
	if q.NewIncident != nil {
		return q.NewIncident.FireDeptID
	}
	return ""
}

// IncidentRef is the read-only slice of an incident row the engine needs:
// the attributes subscriber filters match against, plus the title the
// renderer falls back to for status changes. The incident CRUD subsystem
// owns the full record.
type IncidentRef struct {
	ID         string
	Title      string
	FireDeptID string
	CountyID   string
	CategoryID string
	Status     string
}

// Event is the matching view of one queue item: the attributes subscriber
// filters are evaluated against. RegionID is resolved from the incident's
// fire department; it stays empty when the department is unknown to the
// region lookup, in which case region-filtered subscribers never match.
type Event struct {
	Type       EventType
	IncidentID string
	RegionID   string
	CountyID   string
	CategoryID string
	Status     string
}

// Ongoing reports whether the incident behind the event is still ongoing.
// For status_change events the post-transition status is authoritative.
func (e Event) Ongoing() bool {
	return e.Status == StatusOngoing
}
