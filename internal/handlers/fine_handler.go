package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Upring0808/aitomanager-sub000/internal/models"
	"github.com/Upring0808/aitomanager-sub000/internal/utils"
)

// FineStore is the ledger access the handler needs. GetEvent returns
// (nil, nil) when the event is missing; PayFine reports false when the fine
// is missing or already paid.
type FineStore interface {
	GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	FineExists(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error)
	CreateFine(ctx context.Context, fine *models.Fine) error
	FinesByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Fine, error)
	FinesByUser(ctx context.Context, orgID, userID primitive.ObjectID) ([]models.Fine, error)
	PayFine(ctx context.Context, fineID, orgID primitive.ObjectID, at time.Time) (bool, error)
}

type FineHandler struct {
	fines    FineStore
	notifier *utils.FineNotifier
}

func NewFineHandler(fines FineStore, notifier *utils.FineNotifier) *FineHandler {
	return &FineHandler{
		fines:    fines,
		notifier: notifier,
	}
}

// GetFines lists fines: admins see the whole organization's, members their own
func (h *FineHandler) GetFines(w http.ResponseWriter, r *http.Request) {
	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var fines []models.Fine
	var err error
	role, _ := r.Context().Value("role").(string)
	if role == string(models.RoleAdmin) {
		fines, err = h.fines.FinesByOrg(ctx, orgObjID)
	} else {
		userID, _ := r.Context().Value("userID").(string)
		userObjID, idErr := primitive.ObjectIDFromHex(userID)
		if idErr != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		fines, err = h.fines.FinesByUser(ctx, orgObjID, userObjID)
	}
	if err != nil {
		http.Error(w, "Failed to fetch fines", http.StatusInternalServerError)
		return
	}
	if fines == nil {
		fines = []models.Fine{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fines)
}

// AssignFines bulk-creates fines for the given members, skipping anyone
// already fined for the event
func (h *FineHandler) AssignFines(w http.ResponseWriter, r *http.Request) {
	var input struct {
		EventID string   `json:"event_id"`
		UserIDs []string `json:"user_ids"`
		Amount  float64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if input.EventID == "" || len(input.UserIDs) == 0 || input.Amount <= 0 {
		http.Error(w, "Event ID, user IDs, and a positive amount are required", http.StatusBadRequest)
		return
	}

	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	adminID, _ := r.Context().Value("userID").(string)

	eventObjID, err := primitive.ObjectIDFromHex(input.EventID)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event, err := h.fines.GetEvent(ctx, eventObjID)
	if err != nil {
		http.Error(w, "Failed to fetch event", http.StatusInternalServerError)
		return
	}
	if event == nil || event.OrgID != orgObjID {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	created := []models.Fine{}
	for _, uid := range input.UserIDs {
		userObjID, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			http.Error(w, "Invalid user ID: "+uid, http.StatusBadRequest)
			return
		}

		// One fine per (user, event)
		exists, err := h.fines.FineExists(ctx, userObjID, eventObjID)
		if err != nil {
			http.Error(w, "Failed to check existing fines", http.StatusInternalServerError)
			return
		}
		if exists {
			continue
		}

		fine := models.Fine{
			ID:         primitive.NewObjectID(),
			OrgID:      orgObjID,
			UserID:     userObjID,
			EventID:    eventObjID,
			EventTitle: event.Title,
			Amount:     input.Amount,
			Status:     models.FineUnpaid,
			IssuedBy:   adminID,
			IssuerRole: string(models.RoleAdmin),
			CreatedAt:  time.Now(),
		}
		if err := h.fines.CreateFine(ctx, &fine); err != nil {
			http.Error(w, "Failed to create fine", http.StatusInternalServerError)
			return
		}
		created = append(created, fine)
		if h.notifier != nil {
			h.notifier.FineIssued(fine)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// PayFine marks a fine paid, exactly once
func (h *FineHandler) PayFine(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	fineObjID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid fine ID", http.StatusBadRequest)
		return
	}

	orgObjID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	paid, err := h.fines.PayFine(ctx, fineObjID, orgObjID, time.Now())
	if err != nil {
		http.Error(w, "Failed to update fine", http.StatusInternalServerError)
		return
	}
	if !paid {
		http.Error(w, "Fine not found or already paid", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Fine marked as paid"))
}
