package app

import (
	"github.com/commitly/commitly/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Commitments
	r.HandleFunc("/api/commitment", deps.CommitmentHandler.Schedule).Methods("POST")
	r.HandleFunc("/api/commitment", deps.CommitmentHandler.List).Methods("GET")
	r.HandleFunc("/api/commitment/feed.ics", deps.CommitmentHandler.Feed).Methods("GET")
	r.HandleFunc("/api/commitment/{id}", deps.CommitmentHandler.Get).Methods("GET")
	r.HandleFunc("/api/commitment/{id}", deps.CommitmentHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/commitment/{id}/schedule", deps.CommitmentHandler.Reschedule).Methods("PUT")
	r.HandleFunc("/api/commitment/{id}/complete", deps.CommitmentHandler.Complete).Methods("POST")
	r.HandleFunc("/api/commitment/{id}/undo-complete", deps.CommitmentHandler.UndoComplete).Methods("POST")
	r.HandleFunc("/api/commitment/{id}/archive", deps.CommitmentHandler.Archive).Methods("POST")
	r.HandleFunc("/api/commitment/{id}/restore", deps.CommitmentHandler.Restore).Methods("POST")
	r.HandleFunc("/api/commitment/{id}/schedule-again", deps.CommitmentHandler.ScheduleAgain).Methods("POST")

	// Stats
	r.HandleFunc("/api/stats/summary", deps.CommitmentHandler.Summary).Methods("GET")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")

	// Google Calendar integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/status", deps.GoogleAuth.IsAuthenticated).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
}
