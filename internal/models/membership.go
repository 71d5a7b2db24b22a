package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberRole string

const (
	RoleAdmin   MemberRole = "admin"
	RoleOfficer MemberRole = "officer"
	RoleStudent MemberRole = "student"
)

type Membership struct {
	UserID   primitive.ObjectID `json:"user_id" bson:"user_id"`
	OrgID    primitive.ObjectID `json:"org_id" bson:"org_id"`
	Role     MemberRole         `json:"role" bson:"role"`
	JoinedAt time.Time          `json:"joined_at" bson:"joined_at"`
}
