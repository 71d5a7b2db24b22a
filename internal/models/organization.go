package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FineSettings holds the per-organization absentee fine amounts.
type FineSettings struct {
	StudentFine float64 `json:"student_fine" bson:"student_fine"`
	OfficerFine float64 `json:"officer_fine" bson:"officer_fine"`
}

// DefaultFineSettings are used when an organization has not configured its own amounts.
func DefaultFineSettings() FineSettings {
	return FineSettings{
		StudentFine: 50,
		OfficerFine: 100,
	}
}

type Organization struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	// nil means never configured; an explicit zero amount waives the fine.
	FineSettings *FineSettings      `json:"fine_settings,omitempty" bson:"fine_settings,omitempty"`
	CreatedBy    primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// EffectiveFineSettings returns the configured amounts, or the defaults when
// the organization has never set any.
func (o *Organization) EffectiveFineSettings() FineSettings {
	if o.FineSettings == nil {
		return DefaultFineSettings()
	}
	return *o.FineSettings
}
