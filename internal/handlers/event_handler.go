package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Upring0808/aitomanager-sub000/internal/checkin"
	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/reconciler"
	"github.com/Upring0808/aitomanager-sub000/internal/timewindow"
	"github.com/Upring0808/aitomanager-sub000/internal/token"
)

type EventHandler struct {
	collection *mongo.Collection
	processor  *checkin.Processor
	reconciler *reconciler.Reconciler
}

func NewEventHandler(client *mongo.Client, dbName string, processor *checkin.Processor, rec *reconciler.Reconciler) *EventHandler {
	return &EventHandler{
		collection: client.Database(dbName).Collection("events"),
		processor:  processor,
		reconciler: rec,
	}
}

// CreateEvent handles creating a new event for the admin's organization
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"`
		Timeframe   string `json:"timeframe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if input.Title == "" || input.DueDate == "" {
		http.Error(w, "Title and due date are required", http.StatusBadRequest)
		return
	}
	if !timewindow.ValidTimeframe(input.Timeframe) {
		http.Error(w, "Timeframe must look like \"9:00 AM - 5:00 PM\" or \"21:00 - 22:30\"", http.StatusBadRequest)
		return
	}

	dueDate, err := time.ParseInLocation("2006-01-02", input.DueDate, time.Local)
	if err != nil {
		dueDate, err = time.Parse(time.RFC3339, input.DueDate)
		if err != nil {
			http.Error(w, "Invalid due date, use YYYY-MM-DD or RFC3339", http.StatusBadRequest)
			return
		}
	}

	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	userID, _ := r.Context().Value("userID").(string)
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	newEvent := models.Event{
		ID:                   primitive.NewObjectID(),
		OrgID:                orgObjID,
		Title:                input.Title,
		Description:          input.Description,
		DueDate:              dueDate,
		Timeframe:            input.Timeframe,
		Attendees:            []primitive.ObjectID{},
		AttendanceTimestamps: map[string]time.Time{},
		FinesProcessed:       false,
		CreatedBy:            userObjID,
		CreatedAt:            time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.collection.InsertOne(ctx, newEvent); err != nil {
		http.Error(w, "Failed to create event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newEvent)
}

// GetEvents retrieves all events for the requester's organization
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := h.collection.Find(ctx, bson.M{"org_id": orgObjID})
	if err != nil {
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err = cursor.All(ctx, &events); err != nil {
		http.Error(w, "Error decoding events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// GetEvent retrieves one event by id
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadOrgEvent(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// DeleteEvent deletes an event
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadOrgEvent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.collection.DeleteOne(ctx, bson.M{"_id": event.ID}); err != nil {
		http.Error(w, "Failed to delete event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Event deleted successfully"))
}

// GetEventToken returns the attendance code payload plus its current display
// state, recomputed from the wall clock on every request.
func (h *EventHandler) GetEventToken(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadOrgEvent(w, r)
	if !ok {
		return
	}

	now := time.Now()
	window := timewindow.Parse(event.DueDate, event.Timeframe)
	response := struct {
		Payload   token.Payload `json:"payload"`
		State     token.State   `json:"state"`
		Released  bool          `json:"released"`
		Expired   bool          `json:"expired"`
		ReleaseAt time.Time     `json:"release_at"`
		EndsAt    time.Time     `json:"ends_at"`
	}{
		Payload:   token.Issue(*event),
		State:     token.DisplayState(window, now),
		Released:  token.Released(window, now),
		Expired:   token.Expired(window, now),
		ReleaseAt: window.Start.Add(-token.ReleaseLead),
		EndsAt:    window.End,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CheckIn records attendance from a scanned code
func (h *EventHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	userID, _ := r.Context().Value("userID").(string)
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	orgID, _ := r.Context().Value("orgID").(string)
	orgObjID, _ := primitive.ObjectIDFromHex(orgID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.processor.CheckIn(ctx, raw, userObjID, orgObjID, time.Now())
	switch {
	case errors.Is(err, checkin.ErrMalformedToken):
		http.Error(w, "Malformed attendance code", http.StatusBadRequest)
		return
	case errors.Is(err, checkin.ErrNotAuthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	case errors.Is(err, checkin.ErrWrongOrganization):
		http.Error(w, "This code belongs to a different organization", http.StatusForbidden)
		return
	case errors.Is(err, checkin.ErrEventNotFound):
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	case errors.Is(err, checkin.ErrEventEnded):
		http.Error(w, "This event has already ended", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Failed to record attendance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// TriggerReconciliation lets any member kick off absentee-fine processing for
// an ended event. The periodic worker usually beats them to it.
func (h *EventHandler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadOrgEvent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := h.reconciler.Run(ctx, *event)
	switch {
	case errors.Is(err, reconciler.ErrAlreadyProcessed):
		http.Error(w, "Fines already processed for this event", http.StatusConflict)
		return
	case errors.Is(err, reconciler.ErrWindowOpen):
		http.Error(w, "Event window has not closed yet", http.StatusConflict)
		return
	case errors.Is(err, reconciler.ErrReconciling):
		http.Error(w, "Reconciliation already in progress", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Reconciliation failed, it will be retried", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"fines_created": created})
}

// loadOrgEvent fetches the event in the URL and checks it belongs to the
// requester's organization. Writes the error response itself on failure.
func (h *EventHandler) loadOrgEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return nil, false
	}

	params := mux.Vars(r)
	eventObjID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var event models.Event
	err = h.collection.FindOne(ctx, bson.M{"_id": eventObjID}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			http.Error(w, "Event not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch event", http.StatusInternalServerError)
		}
		return nil, false
	}
	if event.OrgID != orgObjID {
		http.Error(w, "Access denied", http.StatusForbidden)
		return nil, false
	}
	return &event, true
}
