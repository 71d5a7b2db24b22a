package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
)

type OrganizationHandler struct {
	collection  *mongo.Collection
	memberships *mongo.Collection
}

func NewOrganizationHandler(client *mongo.Client, dbName string) *OrganizationHandler {
	return &OrganizationHandler{
		collection:  client.Database(dbName).Collection("organizations"),
		memberships: client.Database(dbName).Collection("memberships"),
	}
}

// CreateOrganization creates an organization; the creator becomes its admin member
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var newOrg models.Organization
	if err := json.NewDecoder(r.Body).Decode(&newOrg); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if newOrg.Name == "" {
		http.Error(w, "Organization name is required", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	newOrg.ID = primitive.NewObjectID()
	newOrg.CreatedBy = userObjID
	newOrg.CreatedAt = time.Now()
	if newOrg.FineSettings == nil {
		defaults := models.DefaultFineSettings()
		newOrg.FineSettings = &defaults
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.collection.InsertOne(ctx, newOrg); err != nil {
		http.Error(w, "Failed to create organization", http.StatusInternalServerError)
		return
	}

	membership := models.Membership{
		UserID:   userObjID,
		OrgID:    newOrg.ID,
		Role:     models.RoleAdmin,
		JoinedAt: time.Now(),
	}
	if _, err := h.memberships.InsertOne(ctx, membership); err != nil {
		http.Error(w, "Failed to create admin membership", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newOrg)
}

// GetOrganization returns the organization the requester is operating in
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var org models.Organization
	err := h.collection.FindOne(ctx, bson.M{"_id": orgObjID}).Decode(&org)
	if err != nil {
		http.Error(w, "Organization not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(org)
}

// UpdateFineSettings changes the per-organization fine amounts
func (h *OrganizationHandler) UpdateFineSettings(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	var settings models.FineSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if settings.StudentFine < 0 || settings.OfficerFine < 0 {
		http.Error(w, "Fine amounts cannot be negative", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.collection.UpdateOne(ctx, bson.M{"_id": orgObjID}, bson.M{
		"$set": bson.M{"fine_settings": settings},
	})
	if err != nil {
		http.Error(w, "Failed to update fine settings", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Fine settings updated successfully"))
}

// JoinOrganization enrolls the requester as a student member
func (h *OrganizationHandler) JoinOrganization(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	orgObjID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Check if the organization exists
	var org models.Organization
	err = h.collection.FindOne(ctx, bson.M{"_id": orgObjID}).Decode(&org)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			http.Error(w, "Organization not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to check organization existence", http.StatusInternalServerError)
		}
		return
	}

	// Check if the user is already a member
	var existing models.Membership
	err = h.memberships.FindOne(ctx, bson.M{"user_id": userObjID, "org_id": orgObjID}).Decode(&existing)
	if err == nil {
		http.Error(w, "Already a member of this organization", http.StatusConflict)
		return
	} else if err != mongo.ErrNoDocuments {
		http.Error(w, "Failed to check membership status", http.StatusInternalServerError)
		return
	}

	membership := models.Membership{
		UserID:   userObjID,
		OrgID:    orgObjID,
		Role:     models.RoleStudent,
		JoinedAt: time.Now(),
	}
	if _, err := h.memberships.InsertOne(ctx, membership); err != nil {
		http.Error(w, "Failed to join organization", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(membership)
}

// GetMembers lists the organization roster
func (h *OrganizationHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := h.memberships.Find(ctx, bson.M{"org_id": orgObjID})
	if err != nil {
		http.Error(w, "Failed to fetch members", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var members []models.Membership
	if err = cursor.All(ctx, &members); err != nil {
		http.Error(w, "Error decoding members", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}

// UpdateMemberRole promotes or demotes a member
func (h *OrganizationHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	params := mux.Vars(r)
	memberObjID, err := primitive.ObjectIDFromHex(params["userId"])
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	var input struct {
		Role models.MemberRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	switch input.Role {
	case models.RoleAdmin, models.RoleOfficer, models.RoleStudent:
	default:
		http.Error(w, "Role must be admin, officer, or student", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := h.memberships.UpdateOne(ctx,
		bson.M{"user_id": memberObjID, "org_id": orgObjID},
		bson.M{"$set": bson.M{"role": input.Role}},
	)
	if err != nil {
		http.Error(w, "Failed to update member role", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Member role updated successfully"))
}

// orgFromContext pulls the operating organization out of the request context.
// Writes the error response itself when the context is unusable.
func orgFromContext(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	orgID, ok := r.Context().Value("orgID").(string)
	if !ok || orgID == "" {
		http.Error(w, "No organization context", http.StatusForbidden)
		return primitive.NilObjectID, false
	}
	orgObjID, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return orgObjID, true
}
