package token

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/timewindow"
)

func testWindow() timewindow.Window {
	date := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local)
	return timewindow.Parse(date, "9:00 AM - 5:00 PM")
}

func TestReleaseGating(t *testing.T) {
	w := testWindow()

	early := time.Date(2024, time.May, 1, 7, 30, 0, 0, time.Local)
	if Released(w, early) {
		t.Error("Released at 07:30 = true, want false")
	}

	inLead := time.Date(2024, time.May, 1, 8, 1, 0, 0, time.Local)
	if !Released(w, inLead) {
		t.Error("Released at 08:01 = false, want true")
	}

	after := time.Date(2024, time.May, 1, 17, 1, 0, 0, time.Local)
	if !Expired(w, after) {
		t.Error("Expired at 17:01 = false, want true")
	}
}

func TestDisplayStateTransitions(t *testing.T) {
	w := testWindow()

	cases := []struct {
		at   time.Time
		want State
	}{
		{time.Date(2024, time.May, 1, 7, 59, 0, 0, time.Local), StatePending},
		{time.Date(2024, time.May, 1, 8, 0, 0, 0, time.Local), StateActive},
		{time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local), StateActive},
		{time.Date(2024, time.May, 1, 17, 0, 0, 0, time.Local), StateActive},
		{time.Date(2024, time.May, 1, 17, 0, 1, 0, time.Local), StateClosed},
	}
	for _, c := range cases {
		if got := DisplayState(w, c.at); got != c.want {
			t.Errorf("DisplayState at %v = %q, want %q", c.at, got, c.want)
		}
	}
}

func TestUnusableWindowNeverReleases(t *testing.T) {
	date := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local)
	w := timewindow.Parse(date, "garbage")

	for _, at := range []time.Time{
		date.Add(-2 * time.Hour),
		date,
		date.Add(12 * time.Hour),
	} {
		if Released(w, at) {
			t.Errorf("Released at %v = true for unusable window, want false", at)
		}
	}
	if got := DisplayState(w, date.Add(time.Hour)); got != StateClosed {
		t.Errorf("state after midnight = %q, want %q", got, StateClosed)
	}
}

func TestIssueAndDecodeRoundTrip(t *testing.T) {
	event := models.Event{
		ID:        primitive.NewObjectID(),
		OrgID:     primitive.NewObjectID(),
		Title:     "General Assembly",
		Timeframe: "9:00 AM - 5:00 PM",
		DueDate:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local),
	}
	p := Issue(event)
	if p.Kind != Kind {
		t.Errorf("kind = %q, want %q", p.Kind, Kind)
	}
	if p.EventDueDate != "2024-05-01" {
		t.Errorf("due date = %q, want %q", p.EventDueDate, "2024-05-01")
	}
	if p.EventID != event.ID.Hex() {
		t.Errorf("event id = %q, want %q", p.EventID, event.ID.Hex())
	}
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	raw := []byte(`{"kind":"event_attendance","eventId":"abc","orgId":"def","extra":"ignored","v":2}`)
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if p.EventID != "abc" || p.OrgID != "def" {
		t.Errorf("decoded payload = %+v", p)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	for _, raw := range []string{
		`{"eventId":"abc","orgId":"def"}`,
		`{"kind":"something_else","eventId":"abc"}`,
		`not json at all`,
	} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Decode(%q) accepted, want error", raw)
		}
	}
}
