package booking

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/fitcore/fitcore-server/cmd/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

type BookingHandler struct {
	service *Service
}

func NewBookingHandler(service *Service) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings", utils.AuthMiddleware(h.CreateBooking)).Methods("POST")
	router.HandleFunc("/bookings", h.GetAllBookings).Methods("GET")
	router.HandleFunc("/bookings/me", utils.AuthMiddleware(h.GetMyBookings)).Methods("GET")
	router.HandleFunc("/bookings/{id:[0-9]+}", h.GetBooking).Methods("GET")
	router.HandleFunc("/bookings/{id:[0-9]+}/cancel", utils.AuthMiddleware(h.CancelBooking)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/reschedule", utils.AuthMiddleware(h.RescheduleBooking)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/confirm", h.ConfirmBooking).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/complete", h.CompleteBooking).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/no-show", h.MarkNoShowBooking).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/admin-cancel", h.AdminCancelBooking).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/feedback", utils.AuthMiddleware(h.SubmitFeedback)).Methods("POST")
	router.HandleFunc("/bookings/{id:[0-9]+}/payment", h.UpdateBookingPayment).Methods("PATCH")
	router.HandleFunc("/members/{memberId:[0-9]+}/bookings", h.GetMemberBookings).Methods("GET")
	router.HandleFunc("/trainers/{trainerId:[0-9]+}/bookings", h.GetTrainerBookings).Methods("GET")
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		TrainerID   uint   `json:"trainer_id" validate:"required"`
		ServiceID   uint   `json:"service_id" validate:"required"`
		BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
		BookingTime string `json:"booking_time" validate:"required"`
		SessionType string `json:"session_type" validate:"omitempty,oneof=one-on-one group"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewValidationError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, NewValidationError("invalid booking request: %v", err))
		return
	}

	booking, err := h.service.Create(CreateInput{
		MemberID:    memberID,
		TrainerID:   req.TrainerID,
		ServiceID:   req.ServiceID,
		Date:        req.BookingDate,
		Time:        req.BookingTime,
		SessionType: models.SessionType(req.SessionType),
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.service.Get(bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetAllBookings(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status, err := ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	date := r.URL.Query().Get("date")

	bookings, total, err := h.service.ListAll(status, date, page, pageSize)
	if err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}
	writePage(w, bookings, total, page, pageSize)
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.listForMember(w, r, memberID)
}

func (h *BookingHandler) GetMemberBookings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	memberID, err := strconv.ParseUint(vars["memberId"], 10, 64)
	if err != nil {
		writeError(w, NewValidationError("invalid member ID"))
		return
	}
	h.listForMember(w, r, uint(memberID))
}

func (h *BookingHandler) listForMember(w http.ResponseWriter, r *http.Request, memberID uint) {
	view, err := ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, err)
		return
	}
	page, pageSize := pagination(r)

	bookings, total, err := h.service.ListByMember(memberID, view, page, pageSize)
	if err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}
	writePage(w, bookings, total, page, pageSize)
}

func (h *BookingHandler) GetTrainerBookings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trainerID, err := strconv.ParseUint(vars["trainerId"], 10, 64)
	if err != nil {
		writeError(w, NewValidationError("invalid trainer ID"))
		return
	}
	view, err := ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, err)
		return
	}
	page, pageSize := pagination(r)

	bookings, total, err := h.service.ListByTrainer(uint(trainerID), view, page, pageSize)
	if err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}
	writePage(w, bookings, total, page, pageSize)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewValidationError("invalid request body"))
		return
	}

	booking, err := h.service.Cancel(bookingID, ActorMember, memberID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
		BookingTime string `json:"booking_time" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewValidationError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, NewValidationError("invalid reschedule request: %v", err))
		return
	}

	booking, err := h.service.Reschedule(bookingID, ActorMember, memberID, RescheduleInput{
		Date: req.BookingDate,
		Time: req.BookingTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// AdminCancelBooking is the back-office cancel. It takes no body: admin
// cancellations carry no reason and skip the ownership check.
func (h *BookingHandler) AdminCancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.service.Cancel(bookingID, ActorAdmin, 0, "")
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.Confirm)
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.Complete)
}

func (h *BookingHandler) MarkNoShowBooking(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.MarkNoShow)
}

func (h *BookingHandler) adminTransition(w http.ResponseWriter, r *http.Request, op func(uint) (*models.Booking, error)) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := op(bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Rating         int    `json:"rating" validate:"required,min=1,max=5"`
		Review         string `json:"review"`
		WouldRecommend bool   `json:"would_recommend"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewValidationError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, NewValidationError("rating must be between 1 and 5"))
		return
	}

	feedback, err := h.service.AttachFeedback(bookingID, memberID, FeedbackInput{
		Rating:         req.Rating,
		Review:         req.Review,
		WouldRecommend: req.WouldRecommend,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(feedback)
}

func (h *BookingHandler) UpdateBookingPayment(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewValidationError("invalid request body"))
		return
	}

	booking, err := h.service.UpdatePaymentStatus(bookingID, models.PaymentStatus(req.PaymentStatus))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, NewValidationError("invalid booking ID"))
		return 0, false
	}
	return uint(id), true
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func writePage(w http.ResponseWriter, bookings []models.Booking, total int64, page, pageSize int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// writeError renders the booking error taxonomy as a stable JSON shape:
// {"error": message, "kind": kind} with the kind-appropriate status code.
func writeError(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		log.Printf("Internal error in booking handler: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(e))
	json.NewEncoder(w).Encode(e)
}
