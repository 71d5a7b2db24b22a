package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
)

type fakeStore struct {
	events   map[primitive.ObjectID]*models.Event
	fines    []models.Fine
	roster   []models.Membership
	settings models.FineSettings

	failCreateAfter int // fail CreateFine once this many fines exist; 0 disables
}

func (s *fakeStore) UnprocessedEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.events {
		if !ev.FinesProcessed {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkFinesProcessed(ctx context.Context, eventID primitive.ObjectID) error {
	s.events[eventID].FinesProcessed = true
	return nil
}

func (s *fakeStore) FineExists(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	for _, f := range s.fines {
		if f.UserID == userID && f.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

var errStoreDown = errors.New("store unavailable")

func (s *fakeStore) CreateFine(ctx context.Context, fine *models.Fine) error {
	if s.failCreateAfter > 0 && len(s.fines) >= s.failCreateAfter {
		return errStoreDown
	}
	s.fines = append(s.fines, *fine)
	return nil
}

func (s *fakeStore) Roster(ctx context.Context, orgID primitive.ObjectID) ([]models.Membership, error) {
	return s.roster, nil
}

func (s *fakeStore) FineSettings(ctx context.Context, orgID primitive.ObjectID) (models.FineSettings, error) {
	return s.settings, nil
}

func (s *fakeStore) finesFor(userID primitive.ObjectID) []models.Fine {
	var out []models.Fine
	for _, f := range s.fines {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out
}

// Event on 2024-05-01 from 9:00 AM to 5:00 PM; roster of A (attended),
// B, C (absent students), D (absent officer).
func scenario() (*fakeStore, *Reconciler, models.Event, [4]primitive.ObjectID) {
	var ids [4]primitive.ObjectID
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	event := models.Event{
		ID:        primitive.NewObjectID(),
		OrgID:     primitive.NewObjectID(),
		Title:     "General Assembly",
		DueDate:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local),
		Timeframe: "9:00 AM - 5:00 PM",
		Attendees: []primitive.ObjectID{a},
	}
	store := &fakeStore{
		events: map[primitive.ObjectID]*models.Event{event.ID: &event},
		roster: []models.Membership{
			{UserID: a, OrgID: event.OrgID, Role: models.RoleStudent},
			{UserID: b, OrgID: event.OrgID, Role: models.RoleStudent},
			{UserID: c, OrgID: event.OrgID, Role: models.RoleStudent},
			{UserID: d, OrgID: event.OrgID, Role: models.RoleOfficer},
		},
		settings: models.FineSettings{StudentFine: 50, OfficerFine: 100},
	}

	rec := New(store, store, store)
	rec.now = func() time.Time {
		return time.Date(2024, time.May, 1, 17, 5, 0, 0, time.Local)
	}
	return store, rec, event, ids
}

func TestReconcileCompleteness(t *testing.T) {
	store, rec, event, ids := scenario()
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	created, err := rec.Run(context.Background(), event)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3", created)
	}
	if len(store.finesFor(a)) != 0 {
		t.Error("attendee A was fined")
	}
	for _, student := range []primitive.ObjectID{b, c} {
		fines := store.finesFor(student)
		if len(fines) != 1 {
			t.Fatalf("student fines = %d, want 1", len(fines))
		}
		if fines[0].Amount != 50 {
			t.Errorf("student fine amount = %v, want 50", fines[0].Amount)
		}
		if fines[0].Status != models.FineUnpaid {
			t.Errorf("fine status = %q, want unpaid", fines[0].Status)
		}
		if fines[0].IssuedBy != models.IssuedBySystem {
			t.Errorf("issued by = %q, want system", fines[0].IssuedBy)
		}
	}
	officerFines := store.finesFor(d)
	if len(officerFines) != 1 || officerFines[0].Amount != 100 {
		t.Errorf("officer fines = %+v, want one fine of 100", officerFines)
	}
	if !store.events[event.ID].FinesProcessed {
		t.Error("fines_processed flag not set")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	store, rec, event, _ := scenario()

	if _, err := rec.Run(context.Background(), event); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Simulate the race: a second invocation that read the event before the
	// flag write still creates no duplicate fines.
	created, err := rec.Run(context.Background(), event)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
	if len(store.fines) != 3 {
		t.Errorf("total fines = %d, want 3", len(store.fines))
	}
	if !store.events[event.ID].FinesProcessed {
		t.Error("fines_processed flag not set")
	}
}

func TestReconcileAlreadyProcessed(t *testing.T) {
	_, rec, event, _ := scenario()
	event.FinesProcessed = true

	if _, err := rec.Run(context.Background(), event); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestReconcileWindowStillOpen(t *testing.T) {
	_, rec, event, _ := scenario()
	rec.now = func() time.Time {
		return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
	}

	if _, err := rec.Run(context.Background(), event); !errors.Is(err, ErrWindowOpen) {
		t.Errorf("err = %v, want ErrWindowOpen", err)
	}
}

func TestReconcileResumesAfterPartialFailure(t *testing.T) {
	store, rec, event, _ := scenario()
	store.failCreateAfter = 1

	created, err := rec.Run(context.Background(), event)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want store failure", err)
	}
	if created != 1 {
		t.Errorf("created before failure = %d, want 1", created)
	}
	if store.events[event.ID].FinesProcessed {
		t.Error("flag set despite partial failure")
	}

	store.failCreateAfter = 0
	created, err = rec.Run(context.Background(), event)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if created != 2 {
		t.Errorf("resumed run created = %d, want 2", created)
	}
	if len(store.fines) != 3 {
		t.Errorf("total fines = %d, want 3", len(store.fines))
	}
	if !store.events[event.ID].FinesProcessed {
		t.Error("flag not set after resumed run")
	}
}

func TestReconcileLockedEvent(t *testing.T) {
	_, rec, event, _ := scenario()

	if !rec.acquire(event.ID) {
		t.Fatal("could not take event lock")
	}
	defer rec.release(event.ID)

	if _, err := rec.Run(context.Background(), event); !errors.Is(err, ErrReconciling) {
		t.Errorf("err = %v, want ErrReconciling", err)
	}
}

func TestReconcileUnusableWindowCountsAsClosed(t *testing.T) {
	store, rec, event, _ := scenario()
	event.Timeframe = "garbage"
	store.events[event.ID].Timeframe = "garbage"
	rec.now = func() time.Time {
		return time.Date(2024, time.May, 1, 0, 5, 0, 0, time.Local)
	}

	created, err := rec.Run(context.Background(), event)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3", created)
	}
}

type recordingNotifier struct {
	issued []models.Fine
}

func (n *recordingNotifier) FineIssued(fine models.Fine) {
	n.issued = append(n.issued, fine)
}

func TestReconcileNotifiesPerFine(t *testing.T) {
	_, rec, event, _ := scenario()
	notifier := &recordingNotifier{}
	rec.Notify = notifier

	if _, err := rec.Run(context.Background(), event); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(notifier.issued) != 3 {
		t.Errorf("notifications = %d, want 3", len(notifier.issued))
	}
}
