package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FineStatus string

const (
	FineUnpaid FineStatus = "unpaid"
	FinePaid   FineStatus = "paid"
)

// IssuedBySystem marks fines created by the absentee reconciler rather than an admin.
const IssuedBySystem = "system"

type Fine struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrgID      primitive.ObjectID `json:"org_id" bson:"org_id"`
	UserID     primitive.ObjectID `json:"user_id" bson:"user_id"`
	EventID    primitive.ObjectID `json:"event_id" bson:"event_id"`
	EventTitle string             `json:"event_title" bson:"event_title"` // Denormalized for fine listings
	Amount     float64            `json:"amount" bson:"amount"`
	Status     FineStatus         `json:"status" bson:"status"`
	IssuedBy   string             `json:"issued_by" bson:"issued_by"` // user id hex, or "system"
	IssuerRole string             `json:"issuer_role,omitempty" bson:"issuer_role,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	PaidAt     *time.Time         `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
}
