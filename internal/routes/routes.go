package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Upring0808/aitomanager-sub000/internal/checkin"
	"github.com/Upring0808/aitomanager-sub000/internal/handlers"
	"github.com/Upring0808/aitomanager-sub000/internal/middleware"
	"github.com/Upring0808/aitomanager-sub000/internal/reconciler"
	"github.com/Upring0808/aitomanager-sub000/internal/store"
	"github.com/Upring0808/aitomanager-sub000/internal/utils"
)

func SetupRouter(client *mongo.Client, dbName string, st *store.Mongo, processor *checkin.Processor, rec *reconciler.Reconciler, notifier *utils.FineNotifier) *mux.Router {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Server is healthy"))
	}).Methods("GET")

	userHandler := handlers.NewUserHandler(client, dbName)
	orgHandler := handlers.NewOrganizationHandler(client, dbName)
	eventHandler := handlers.NewEventHandler(client, dbName, processor, rec)
	fineHandler := handlers.NewFineHandler(st, notifier)

	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/users/signup", userHandler.Signup).Methods("POST")
	public.HandleFunc("/users/signin", userHandler.Signin).Methods("POST")

	member := router.PathPrefix("/api").Subrouter()
	member.Use(middleware.MemberAuthMiddleware)
	member.HandleFunc("/orgs", orgHandler.CreateOrganization).Methods("POST")
	member.HandleFunc("/orgs/{id}/join", orgHandler.JoinOrganization).Methods("POST")
	member.HandleFunc("/org", orgHandler.GetOrganization).Methods("GET")
	member.HandleFunc("/events", eventHandler.GetEvents).Methods("GET")
	member.HandleFunc("/events/checkin", eventHandler.CheckIn).Methods("POST")
	member.HandleFunc("/events/{id}", eventHandler.GetEvent).Methods("GET")
	member.HandleFunc("/events/{id}/reconcile", eventHandler.TriggerReconciliation).Methods("POST")
	member.HandleFunc("/fines", fineHandler.GetFines).Methods("GET")

	admin := router.PathPrefix("/api").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware)
	admin.HandleFunc("/users", userHandler.GetUsers).Methods("GET")
	admin.HandleFunc("/org/fine-settings", orgHandler.UpdateFineSettings).Methods("PATCH")
	admin.HandleFunc("/org/members", orgHandler.GetMembers).Methods("GET")
	admin.HandleFunc("/org/members/{userId}/role", orgHandler.UpdateMemberRole).Methods("PATCH")
	admin.HandleFunc("/events", eventHandler.CreateEvent).Methods("POST")
	admin.HandleFunc("/events/{id}", eventHandler.DeleteEvent).Methods("DELETE")
	admin.HandleFunc("/events/{id}/token", eventHandler.GetEventToken).Methods("GET")
	admin.HandleFunc("/fines/assign", fineHandler.AssignFines).Methods("POST")
	admin.HandleFunc("/fines/{id}/pay", fineHandler.PayFine).Methods("PATCH")

	return router
}
