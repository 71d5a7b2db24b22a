package checkin

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/timewindow"
	"github.com/Upring0808/aitomanager-sub000/internal/token"
)

var (
	ErrMalformedToken    = errors.New("malformed attendance token")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrWrongOrganization = errors.New("event belongs to a different organization")
	ErrEventNotFound     = errors.New("event not found")
	ErrEventEnded        = errors.New("event has already ended")
)

// EventStore is the document-store access the processor needs. GetEvent
// returns (nil, nil) when no event exists with the given id.
type EventStore interface {
	GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID, at time.Time) error
}

// Result reports the outcome of a successful check-in. AlreadyAttended is a
// benign non-error: the scan found an existing attendance entry and nothing
// was mutated.
type Result struct {
	EventID         primitive.ObjectID `json:"event_id"`
	AlreadyAttended bool               `json:"already_attended"`
	CheckedInAt     *time.Time         `json:"checked_in_at,omitempty"`
}

type Processor struct {
	events EventStore
}

func NewProcessor(events EventStore) *Processor {
	return &Processor{events: events}
}

// CheckIn validates a scanned token for the given user and organization
// context and records one attendance entry. Validation fails fast in order:
// token well-formedness, authentication, organization, event existence, event
// window. A repeat scan short-circuits to AlreadyAttended without mutating.
//
// The single mutation is an atomic set-union add on the event document, so a
// benign race between two scans by the same user still yields one logical
// attendance.
func (p *Processor) CheckIn(ctx context.Context, raw []byte, userID, orgID primitive.ObjectID, now time.Time) (*Result, error) {
	payload, err := token.Decode(raw)
	if err != nil {
		return nil, ErrMalformedToken
	}
	eventID, err := primitive.ObjectIDFromHex(payload.EventID)
	if err != nil {
		return nil, ErrMalformedToken
	}

	if userID.IsZero() {
		return nil, ErrNotAuthenticated
	}

	if orgID.IsZero() || payload.OrgID != orgID.Hex() {
		return nil, ErrWrongOrganization
	}

	event, err := p.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if event.OrgID != orgID {
		return nil, ErrWrongOrganization
	}

	// The stored event is authoritative for the window, not the token payload.
	window := timewindow.Parse(event.DueDate, event.Timeframe)
	if now.After(window.End) {
		return nil, ErrEventEnded
	}

	if event.HasAttendee(userID) {
		return &Result{EventID: event.ID, AlreadyAttended: true}, nil
	}

	if err := p.events.AddAttendee(ctx, event.ID, userID, now); err != nil {
		return nil, err
	}
	return &Result{EventID: event.ID, CheckedInAt: &now}, nil
}
