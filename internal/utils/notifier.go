package utils

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
)

// FineNotifier emails a member when a fine is issued against them. Sends are
// fire-and-forget; a lost notice never blocks or fails fine creation.
type FineNotifier struct {
	users  *mongo.Collection
	mailer *Mailer
}

func NewFineNotifier(client *mongo.Client, dbName string, mailer *Mailer) *FineNotifier {
	return &FineNotifier{
		users:  client.Database(dbName).Collection("users"),
		mailer: mailer,
	}
}

func (n *FineNotifier) FineIssued(fine models.Fine) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := n.users.FindOne(ctx, bson.M{"_id": fine.UserID}).Decode(&user); err != nil {
			log.Printf("Fine notice: failed to look up user %s: %v", fine.UserID.Hex(), err)
			return
		}

		body := FineNoticeBody(user.DisplayName, fine.EventTitle, fine.Amount)
		if err := n.mailer.Send(user.Email, "Absence Fine Issued", body); err != nil {
			log.Printf("Fine notice: failed to email %s: %v", user.Email, err)
		}
	}()
}
