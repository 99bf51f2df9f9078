package users

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users", handler.Register).Methods("POST")
	api.HandleFunc("/users", handler.ListAll).Methods("GET")
	api.HandleFunc("/users/{username}", handler.Get).Methods("GET")
	api.HandleFunc("/users/{username}", handler.Update).Methods("PATCH")
	api.HandleFunc("/users/{username}", handler.Delete).Methods("DELETE")

	api.HandleFunc("/users/{username}/interactions", handler.RecordInteraction).Methods("POST")
}
