package events

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/events", handler.Create).Methods("POST")
	api.HandleFunc("/events", handler.ListAll).Methods("GET")
	api.HandleFunc("/events/{id}", handler.Get).Methods("GET")
	api.HandleFunc("/events/{id}", handler.Update).Methods("PATCH")
	api.HandleFunc("/events/{id}", handler.Delete).Methods("DELETE")

	api.HandleFunc("/events/{id}/likes", handler.Like).Methods("POST")
	api.HandleFunc("/events/{id}/likes", handler.ListLikes).Methods("GET")
	api.HandleFunc("/events/{id}/likes/{username}/check", handler.CheckLike).Methods("POST")

	// Likes received across a user's upcoming events.
	api.HandleFunc("/users/{username}/likes", handler.ListUploaderLikes).Methods("GET")
}
