package token

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/timewindow"
)

// Kind identifies an attendance token payload. Decoders reject anything else.
const Kind = "event_attendance"

// ReleaseLead is how long before the event start the code becomes scannable.
const ReleaseLead = time.Hour

var ErrMalformed = errors.New("malformed attendance token")

// Payload is the scanned code's content: a plain, unsigned JSON object. It is
// not a credential; holding it proves nothing beyond having seen the displayed
// code, and the server still checks the scanner's organization membership.
type Payload struct {
	Kind           string `json:"kind"`
	EventID        string `json:"eventId"`
	OrgID          string `json:"orgId"`
	EventTitle     string `json:"eventTitle"`
	EventTimeframe string `json:"eventTimeframe"`
	EventDueDate   string `json:"eventDueDate"`
}

// Issue builds the token payload for an event.
func Issue(event models.Event) Payload {
	return Payload{
		Kind:           Kind,
		EventID:        event.ID.Hex(),
		OrgID:          event.OrgID.Hex(),
		EventTitle:     event.Title,
		EventTimeframe: event.Timeframe,
		EventDueDate:   event.DueDate.Format("2006-01-02"),
	}
}

// Decode parses a scanned payload. Unknown extra fields are tolerated; a
// payload whose kind is missing or wrong is rejected.
func Decode(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p.Kind != Kind {
		return Payload{}, ErrMalformed
	}
	return p, nil
}

// Released reports whether the code may be displayed and scanned. An unusable
// window never releases.
func Released(w timewindow.Window, now time.Time) bool {
	return w.Usable() && !now.Before(w.Start.Add(-ReleaseLead))
}

// Expired reports whether the event window has closed.
func Expired(w timewindow.Window, now time.Time) bool {
	return now.After(w.End)
}

// State is the display state of the issuing screen. It carries no stored
// state: it is recomputed from the window and the wall clock on every tick.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateClosed  State = "closed"
)

// DisplayState classifies now against the event window.
func DisplayState(w timewindow.Window, now time.Time) State {
	if Expired(w, now) {
		return StateClosed
	}
	if Released(w, now) {
		return StateActive
	}
	return StatePending
}
