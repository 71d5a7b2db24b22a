package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
)

// Mongo backs the check-in processor and the absentee reconciler with the
// document store. Everything here stays within the backend's contract:
// get/set/update by id, equality-filter queries, single-document atomicity.
type Mongo struct {
	events      *mongo.Collection
	fines       *mongo.Collection
	memberships *mongo.Collection
	orgs        *mongo.Collection
	users       *mongo.Collection
}

func NewMongo(client *mongo.Client, dbName string) *Mongo {
	db := client.Database(dbName)
	return &Mongo{
		events:      db.Collection("events"),
		fines:       db.Collection("fines"),
		memberships: db.Collection("memberships"),
		orgs:        db.Collection("organizations"),
		users:       db.Collection("users"),
	}
}

// GetEvent returns (nil, nil) when no event exists with the given id.
func (s *Mongo) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var event models.Event
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// AddAttendee records one attendance entry as a single atomic document
// update. $addToSet gives set-union semantics, so a racing duplicate add is a
// no-op rather than a second entry.
func (s *Mongo) AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID, at time.Time) error {
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{
		"$addToSet": bson.M{"attendees": userID},
		"$set":      bson.M{"attendance_timestamps." + userID.Hex(): at},
	})
	return err
}

func (s *Mongo) UnprocessedEvents(ctx context.Context) ([]models.Event, error) {
	cursor, err := s.events.Find(ctx, bson.M{"fines_processed": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Mongo) MarkFinesProcessed(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{
		"$set": bson.M{"fines_processed": true},
	})
	return err
}

func (s *Mongo) FineExists(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	err := s.fines.FindOne(ctx, bson.M{"user_id": userID, "event_id": eventID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Mongo) CreateFine(ctx context.Context, fine *models.Fine) error {
	_, err := s.fines.InsertOne(ctx, fine)
	return err
}

func (s *Mongo) Roster(ctx context.Context, orgID primitive.ObjectID) ([]models.Membership, error) {
	cursor, err := s.memberships.Find(ctx, bson.M{"org_id": orgID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roster []models.Membership
	if err := cursor.All(ctx, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// FineSettings falls back to the defaults when the organization is missing
// or has never configured amounts. Explicitly configured zero amounts are
// honored.
func (s *Mongo) FineSettings(ctx context.Context, orgID primitive.ObjectID) (models.FineSettings, error) {
	var org models.Organization
	err := s.orgs.FindOne(ctx, bson.M{"_id": orgID}).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.DefaultFineSettings(), nil
	}
	if err != nil {
		return models.FineSettings{}, err
	}
	return org.EffectiveFineSettings(), nil
}

func (s *Mongo) FinesByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Fine, error) {
	return s.findFines(ctx, bson.M{"org_id": orgID})
}

func (s *Mongo) FinesByUser(ctx context.Context, orgID, userID primitive.ObjectID) ([]models.Fine, error) {
	return s.findFines(ctx, bson.M{"org_id": orgID, "user_id": userID})
}

func (s *Mongo) findFines(ctx context.Context, filter bson.M) ([]models.Fine, error) {
	cursor, err := s.fines.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fines []models.Fine
	if err := cursor.All(ctx, &fines); err != nil {
		return nil, err
	}
	return fines, nil
}

// PayFine flips an unpaid fine to paid. The status filter makes the update a
// one-shot: a fine that is missing, paid, or from another organization
// matches nothing and PayFine reports false.
func (s *Mongo) PayFine(ctx context.Context, fineID, orgID primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.fines.UpdateOne(ctx,
		bson.M{"_id": fineID, "org_id": orgID, "status": models.FineUnpaid},
		bson.M{"$set": bson.M{"status": models.FinePaid, "paid_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// GetUser returns (nil, nil) when no user exists with the given id.
func (s *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
