package events

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/SlowlyFire/Hobbinder/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.Create(r.Context(), &dto)
	if err != nil {
		if errors.Is(err, ErrPastWhenDate) || errors.Is(err, ErrInvalidCoordinates) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, event)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	event, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, event)
}

// ListAll returns every event, or the browsable feed for one user when the
// "for" query parameter is set (own uploads excluded).
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	var list []*Event
	var err error

	if username := r.URL.Query().Get("for"); username != "" {
		list, err = h.service.ListForUser(r.Context(), username)
	} else {
		list, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	var dto UpdateEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.Update(r.Context(), id, &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrPastWhenDate), errors.Is(err, ErrInvalidCoordinates):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update event")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, event)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	var dto LikeEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Like(r.Context(), id, dto.Username); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to like event")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Event liked successfully"})
}

func (h *Handler) ListLikes(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	likes, err := h.service.ListLikes(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list likes")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, likes)
}

func (h *Handler) ListUploaderLikes(w http.ResponseWriter, r *http.Request) {
	uploader := mux.Vars(r)["username"]

	likes, err := h.service.ListUploaderLikes(r.Context(), uploader)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list likes")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, likes)
}

func (h *Handler) CheckLike(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	username := mux.Vars(r)["username"]

	if err := h.service.CheckLike(r.Context(), id, username); err != nil {
		if errors.Is(err, ErrLikeNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check like")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Like marked as checked"})
}

func eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid event ID")
		return 0, false
	}
	return id, true
}
