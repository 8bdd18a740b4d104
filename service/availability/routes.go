package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fitcore/fitcore-server/service/booking"
	"github.com/gorilla/mux"
)

type AvailabilityHandler struct {
	bookings *booking.Service
}

func NewAvailabilityHandler(bookings *booking.Service) *AvailabilityHandler {
	return &AvailabilityHandler{bookings: bookings}
}

func (h *AvailabilityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/availability/slots", h.GetSlotGrid).Methods("GET")
	router.HandleFunc("/trainers/{trainerId:[0-9]+}/availability/date/{date}", h.GetTrainerAvailability).Methods("GET")
}

// GetSlotGrid returns the gym's configured slot schedule.
func (h *AvailabilityHandler) GetSlotGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"slots": h.bookings.Schedule().Slots(),
	})
}

// GetTrainerAvailability returns every schedule slot for the trainer and
// date, annotated with an availability flag. Booked slots stay in the
// response marked unavailable so clients can render them as taken.
func (h *AvailabilityHandler) GetTrainerAvailability(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trainerID, err := strconv.ParseUint(vars["trainerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid trainer ID", http.StatusBadRequest)
		return
	}
	date := vars["date"]

	slots, err := h.bookings.Availability(uint(trainerID), date)
	if err != nil {
		var e *booking.Error
		if errors.As(err, &e) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(booking.HTTPStatus(e))
			json.NewEncoder(w).Encode(e)
			return
		}
		http.Error(w, "Error computing availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"trainer_id": trainerID,
		"date":       date,
		"slots":      slots,
	})
}
