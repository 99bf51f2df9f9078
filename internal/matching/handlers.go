package matching

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SlowlyFire/Hobbinder/internal/common/utils"
	"github.com/SlowlyFire/Hobbinder/internal/users"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetMatches returns the ranked match list for a user. An empty array means
// the user has already acted on every open event.
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	matches, err := h.service.GetMatches(r.Context(), username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute matches")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, matches)
}

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/matches/{username}", handler.GetMatches).Methods("POST")
}
