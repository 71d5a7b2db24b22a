package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/timewindow"
)

var (
	ErrAlreadyProcessed = errors.New("fines already processed for this event")
	ErrWindowOpen       = errors.New("event window has not closed yet")
	ErrReconciling      = errors.New("reconciliation already in progress for this event")
)

// EventStore provides the event-side document access the reconciler needs.
type EventStore interface {
	UnprocessedEvents(ctx context.Context) ([]models.Event, error)
	MarkFinesProcessed(ctx context.Context, eventID primitive.ObjectID) error
}

// FineStore provides the fine ledger access. The reconciler only ever cares
// about a fine's existence for a (user, event) pair, never its status.
type FineStore interface {
	FineExists(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error)
	CreateFine(ctx context.Context, fine *models.Fine) error
}

// OrgStore provides the member roster and fine settings for an organization.
type OrgStore interface {
	Roster(ctx context.Context, orgID primitive.ObjectID) ([]models.Membership, error)
	FineSettings(ctx context.Context, orgID primitive.ObjectID) (models.FineSettings, error)
}

// Notifier is told about each fine the reconciler creates. Optional.
type Notifier interface {
	FineIssued(fine models.Fine)
}

// Reconciler assesses an absentee fine on every roster member who did not
// check in to an event, once the event window has closed, then marks the
// event processed. The per-fine existence check, not the event flag, is what
// makes the run safely repeatable: a partial failure leaves the flag false
// and a later run skips the members already fined.
type Reconciler struct {
	events EventStore
	fines  FineStore
	orgs   OrgStore
	Notify Notifier

	now func() time.Time

	mu     sync.Mutex
	active map[primitive.ObjectID]bool
}

func New(events EventStore, fines FineStore, orgs OrgStore) *Reconciler {
	return &Reconciler{
		events: events,
		fines:  fines,
		orgs:   orgs,
		now:    time.Now,
		active: make(map[primitive.ObjectID]bool),
	}
}

// Due reports whether the event qualifies for reconciliation: fines not yet
// processed and the window closed. An unusable window counts as closed the
// moment its date's midnight has passed.
func (r *Reconciler) Due(event models.Event, now time.Time) bool {
	if event.FinesProcessed {
		return false
	}
	window := timewindow.Parse(event.DueDate, event.Timeframe)
	return now.After(window.End)
}

// Run reconciles one event under a per-event lock, so concurrent triggers
// (the ticking worker plus a member hitting the endpoint) cannot double-run
// it within this process. Returns the number of fines created.
func (r *Reconciler) Run(ctx context.Context, event models.Event) (int, error) {
	now := r.now()
	if event.FinesProcessed {
		return 0, ErrAlreadyProcessed
	}
	if !r.Due(event, now) {
		return 0, ErrWindowOpen
	}
	if !r.acquire(event.ID) {
		return 0, ErrReconciling
	}
	defer r.release(event.ID)

	settings, err := r.orgs.FineSettings(ctx, event.OrgID)
	if err != nil {
		return 0, err
	}
	roster, err := r.orgs.Roster(ctx, event.OrgID)
	if err != nil {
		return 0, err
	}

	attended := make(map[primitive.ObjectID]bool, len(event.Attendees))
	for _, id := range event.Attendees {
		attended[id] = true
	}

	created := 0
	for _, member := range roster {
		if attended[member.UserID] {
			continue
		}
		exists, err := r.fines.FineExists(ctx, member.UserID, event.ID)
		if err != nil {
			return created, err
		}
		if exists {
			// Fined by an earlier (possibly interrupted) run.
			continue
		}

		amount := settings.OfficerFine
		if member.Role == models.RoleStudent {
			amount = settings.StudentFine
		}
		fine := models.Fine{
			ID:         primitive.NewObjectID(),
			OrgID:      event.OrgID,
			UserID:     member.UserID,
			EventID:    event.ID,
			EventTitle: event.Title,
			Amount:     amount,
			Status:     models.FineUnpaid,
			IssuedBy:   models.IssuedBySystem,
			CreatedAt:  now,
		}
		if err := r.fines.CreateFine(ctx, &fine); err != nil {
			return created, err
		}
		created++
		if r.Notify != nil {
			r.Notify.FineIssued(fine)
		}
	}

	// Flag write comes last: a failure anywhere above leaves the event
	// unprocessed and a later run resumes.
	if err := r.events.MarkFinesProcessed(ctx, event.ID); err != nil {
		return created, err
	}
	return created, nil
}

func (r *Reconciler) acquire(eventID primitive.ObjectID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[eventID] {
		return false
	}
	r.active[eventID] = true
	return true
}

func (r *Reconciler) release(eventID primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, eventID)
}
