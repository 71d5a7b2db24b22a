package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/token"
)

type fakeEventStore struct {
	events map[primitive.ObjectID]*models.Event
	adds   int
}

func (s *fakeEventStore) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (s *fakeEventStore) AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID, at time.Time) error {
	ev := s.events[eventID]
	if ev.AttendanceTimestamps == nil {
		ev.AttendanceTimestamps = make(map[string]time.Time)
	}
	// Set-union semantics, as the document store provides.
	if !ev.HasAttendee(userID) {
		ev.Attendees = append(ev.Attendees, userID)
	}
	ev.AttendanceTimestamps[userID.Hex()] = at
	s.adds++
	return nil
}

func fixture() (*fakeEventStore, models.Event) {
	ev := models.Event{
		ID:        primitive.NewObjectID(),
		OrgID:     primitive.NewObjectID(),
		Title:     "General Assembly",
		DueDate:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local),
		Timeframe: "9:00 AM - 5:00 PM",
	}
	store := &fakeEventStore{events: map[primitive.ObjectID]*models.Event{ev.ID: &ev}}
	return store, ev
}

func payloadBytes(t *testing.T, ev models.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(token.Issue(ev))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestCheckInRecordsAttendance(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

	res, err := p.CheckIn(context.Background(), payloadBytes(t, ev), user, ev.OrgID, now)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if res.AlreadyAttended {
		t.Error("first check-in reported AlreadyAttended")
	}
	if res.CheckedInAt == nil || !res.CheckedInAt.Equal(now) {
		t.Errorf("checked in at %v, want %v", res.CheckedInAt, now)
	}

	stored := store.events[ev.ID]
	if !stored.HasAttendee(user) {
		t.Error("attendee not recorded")
	}
	if got := stored.AttendanceTimestamps[user.Hex()]; !got.Equal(now) {
		t.Errorf("timestamp = %v, want %v", got, now)
	}
}

func TestCheckInIdempotent(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)
	raw := payloadBytes(t, ev)

	if _, err := p.CheckIn(context.Background(), raw, user, ev.OrgID, now); err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	for i := 0; i < 2; i++ {
		res, err := p.CheckIn(context.Background(), raw, user, ev.OrgID, now.Add(time.Minute))
		if err != nil {
			t.Fatalf("repeat check-in: %v", err)
		}
		if !res.AlreadyAttended {
			t.Error("repeat check-in did not report AlreadyAttended")
		}
		if res.CheckedInAt != nil {
			t.Errorf("repeat check-in carries timestamp %v, want none", res.CheckedInAt)
		}
	}
	if got := len(store.events[ev.ID].Attendees); got != 1 {
		t.Errorf("attendee count = %d, want 1", got)
	}
	if store.adds != 1 {
		t.Errorf("mutations = %d, want 1", store.adds)
	}
}

func TestCheckInMalformedToken(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

	for _, raw := range []string{
		`not json`,
		`{"kind":"wrong_kind","eventId":"x"}`,
		`{"kind":"event_attendance","eventId":"not-hex","orgId":"` + ev.OrgID.Hex() + `"}`,
	} {
		if _, err := p.CheckIn(context.Background(), []byte(raw), user, ev.OrgID, now); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("CheckIn(%q) err = %v, want ErrMalformedToken", raw, err)
		}
	}
}

func TestCheckInUnauthenticated(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

	_, err := p.CheckIn(context.Background(), payloadBytes(t, ev), primitive.NilObjectID, ev.OrgID, now)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestCheckInWrongOrganization(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

	_, err := p.CheckIn(context.Background(), payloadBytes(t, ev), user, primitive.NewObjectID(), now)
	if !errors.Is(err, ErrWrongOrganization) {
		t.Errorf("err = %v, want ErrWrongOrganization", err)
	}
}

func TestCheckInEventNotFound(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

	ghost := ev
	ghost.ID = primitive.NewObjectID()
	_, err := p.CheckIn(context.Background(), payloadBytes(t, ghost), user, ev.OrgID, now)
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestCheckInAfterWindowClose(t *testing.T) {
	store, ev := fixture()
	p := NewProcessor(store)
	user := primitive.NewObjectID()
	late := time.Date(2024, time.May, 1, 17, 1, 0, 0, time.Local)

	_, err := p.CheckIn(context.Background(), payloadBytes(t, ev), user, ev.OrgID, late)
	if !errors.Is(err, ErrEventEnded) {
		t.Errorf("err = %v, want ErrEventEnded", err)
	}
	if len(store.events[ev.ID].Attendees) != 0 {
		t.Error("late scan mutated the attendance set")
	}
}
