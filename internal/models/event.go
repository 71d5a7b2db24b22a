package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrgID       primitive.ObjectID `json:"org_id" bson:"org_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	DueDate     time.Time          `json:"due_date" bson:"due_date"`   // Calendar date of the event
	Timeframe   string             `json:"timeframe" bson:"timeframe"` // Free-text range (e.g. "9:00 AM - 5:00 PM")
	// Attendees grows monotonically until the event window closes.
	Attendees            []primitive.ObjectID `json:"attendees" bson:"attendees"`
	AttendanceTimestamps map[string]time.Time `json:"attendance_timestamps" bson:"attendance_timestamps"` // keyed by user id hex
	FinesProcessed       bool                 `json:"fines_processed" bson:"fines_processed"`
	CreatedBy            primitive.ObjectID   `json:"created_by" bson:"created_by"`
	CreatedAt            time.Time            `json:"created_at" bson:"created_at"`
}

// HasAttendee reports whether the user has already checked in to the event.
func (e *Event) HasAttendee(userID primitive.ObjectID) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}
