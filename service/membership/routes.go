package membership

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/fitcore/fitcore-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type MembershipHandler struct {
	db *gorm.DB
}

func NewMembershipHandler(db *gorm.DB) *MembershipHandler {
	return &MembershipHandler{db: db}
}

func (h *MembershipHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/membership-plans", h.CreatePlan).Methods("POST")
	router.HandleFunc("/membership-plans", h.GetPlans).Methods("GET")
	router.HandleFunc("/membership-plans/{id:[0-9]+}", h.UpdatePlan).Methods("PUT")
	router.HandleFunc("/memberships/initialize-payment", utils.AuthMiddleware(h.InitializeMembershipPayment)).Methods("POST")
	router.HandleFunc("/memberships/webhook", h.HandlePaystackWebhook).Methods("POST")
	router.HandleFunc("/memberships/me", utils.AuthMiddleware(h.GetMyMembership)).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}/memberships", h.GetUserMemberships).Methods("GET")
}

func (h *MembershipHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Interval    string  `json:"interval"`
		Price       float64 `json:"price"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Price < 0 {
		http.Error(w, "Name and a non-negative price are required", http.StatusBadRequest)
		return
	}

	switch req.Interval {
	case "monthly", "quarterly", "annual":
	default:
		http.Error(w, "Interval must be monthly, quarterly or annual", http.StatusBadRequest)
		return
	}

	plan := models.MembershipPlan{
		Name:        req.Name,
		Description: req.Description,
		Interval:    req.Interval,
		Price:       req.Price,
		Active:      true,
	}

	if err := h.db.Create(&plan).Error; err != nil {
		http.Error(w, "Error creating plan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(plan)
}

func (h *MembershipHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.MembershipPlan{})
	if r.URL.Query().Get("include_inactive") != "true" {
		query = query.Where("active = ?", true)
	}

	var plans []models.MembershipPlan
	if err := query.Order("price ASC").Find(&plans).Error; err != nil {
		http.Error(w, "Error retrieving plans", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plans)
}

func (h *MembershipHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	planID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid plan ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Active      *bool    `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var plan models.MembershipPlan
	if result := h.db.First(&plan, planID); result.Error != nil {
		http.Error(w, "Plan not found", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}

	if err := h.db.Save(&plan).Error; err != nil {
		http.Error(w, "Error updating plan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plan)
}

// InitializeMembershipPayment creates a pending membership and returns a
// Paystack authorization URL. The membership only becomes active once
// the charge.success webhook arrives.
func (h *MembershipHandler) InitializeMembershipPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var initRequest struct {
		PlanID uint `json:"plan_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&initRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var plan models.MembershipPlan
	if err := tx.First(&plan, initRequest.PlanID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Plan not found", http.StatusNotFound)
		return
	}
	if !plan.Active {
		tx.Rollback()
		http.Error(w, "Plan is no longer offered", http.StatusConflict)
		return
	}

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	// Reject a second purchase while a membership is still running
	var activeMembership models.Membership
	if err := tx.Where("user_id = ? AND status = ? AND end_date > ?", userID, "active", time.Now()).
		First(&activeMembership).Error; err == nil {
		tx.Rollback()
		http.Error(w, "User already has an active membership", http.StatusConflict)
		return
	}

	membership := models.Membership{
		UserID: userID,
		PlanID: plan.ID,
		Status: "pending",
		Amount: plan.Price,
	}

	if err := tx.Create(&membership).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating membership", http.StatusInternalServerError)
		return
	}

	reference := fmt.Sprintf("MEM-%d-%d", membership.ID, time.Now().Unix())

	paystackURL := "https://api.paystack.co/transaction/initialize"
	paystackReq := map[string]interface{}{
		"email":     user.Email,
		"amount":    int64(plan.Price * 100), // Convert price to smallest unit
		"reference": reference,
		"metadata": map[string]interface{}{
			"payment_type":  "membership",
			"membership_id": membership.ID,
			"user_id":       userID,
			"plan_id":       plan.ID,
		},
	}

	payloadBytes, _ := json.Marshal(paystackReq)
	req, _ := http.NewRequest("POST", paystackURL, bytes.NewBuffer(payloadBytes))
	req.Header.Set("Authorization", "Bearer "+os.Getenv("PAYSTACK_SECRET_KEY"))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		tx.Rollback()
		http.Error(w, "Error initializing payment", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var paystackResp struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&paystackResp); err != nil {
		tx.Rollback()
		http.Error(w, "Error reading payment response", http.StatusInternalServerError)
		return
	}

	membership.PaymentID = reference
	if err := tx.Save(&membership).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating membership", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing initialization", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authorization_url": paystackResp.Data.AuthorizationURL,
		"reference":         reference,
		"membership_id":     membership.ID,
	})
}

// HandlePaystackWebhook processes the payment webhook from Paystack
func (h *MembershipHandler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	paystackSignature := r.Header.Get("X-Paystack-Signature")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	// Verify signature
	mac := hmac.New(sha512.New, []byte(os.Getenv("PAYSTACK_SECRET_KEY")))
	mac.Write(body)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(paystackSignature), []byte(expectedMAC)) {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	var webhookPayload struct {
		Event string `json:"event"`
		Data  struct {
			Reference string  `json:"reference"`
			Status    string  `json:"status"`
			Amount    float64 `json:"amount"`
			Metadata  struct {
				PaymentType  string `json:"payment_type"`
				MembershipID uint   `json:"membership_id,omitempty"`
				UserID       uint   `json:"user_id,omitempty"`
				PlanID       uint   `json:"plan_id,omitempty"`
			} `json:"metadata"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &webhookPayload); err != nil {
		http.Error(w, "Error parsing webhook payload", http.StatusBadRequest)
		return
	}

	// Only process successful charge events
	if webhookPayload.Event != "charge.success" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !strings.HasPrefix(webhookPayload.Data.Reference, "MEM-") &&
		webhookPayload.Data.Metadata.PaymentType != "membership" {
		log.Printf("Unknown payment type for reference: %s", webhookPayload.Data.Reference)
		w.WriteHeader(http.StatusOK) // Still return 200 to avoid repeated webhooks
		return
	}

	tx := h.db.Begin()

	var membership models.Membership
	if err := tx.Preload("Plan").Where("payment_id = ?", webhookPayload.Data.Reference).First(&membership).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Membership not found", http.StatusNotFound)
		return
	}

	// Webhooks can be delivered more than once
	if membership.Status == "active" {
		tx.Rollback()
		w.WriteHeader(http.StatusOK)
		return
	}

	now := time.Now()
	var endDate time.Time

	switch membership.Plan.Interval {
	case "monthly":
		endDate = now.AddDate(0, 1, 0)
	case "quarterly":
		endDate = now.AddDate(0, 3, 0)
	case "annual":
		endDate = now.AddDate(1, 0, 0)
	default:
		endDate = now.AddDate(0, 1, 0) // Default to monthly
	}

	membership.Status = "active"
	membership.StartDate = now
	membership.EndDate = endDate

	if err := tx.Save(&membership).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating membership", http.StatusInternalServerError)
		return
	}

	transaction := models.Transaction{
		UserID:  membership.UserID,
		Amount:  webhookPayload.Data.Amount / 100, // Convert from smallest unit
		Method:  "Paystack",
		Purpose: "Membership - " + membership.Plan.Name,
	}

	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating transaction", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing webhook processing", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetMyMembership returns the caller's current membership, if any
func (h *MembershipHandler) GetMyMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var membership models.Membership
	result := h.db.Preload("Plan").
		Where("user_id = ? AND status = ? AND end_date > ?", userID, "active", time.Now()).
		Order("end_date DESC").
		First(&membership)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "No active membership", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving membership", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(membership)
}

// GetUserMemberships lists a user's membership history
func (h *MembershipHandler) GetUserMemberships(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var memberships []models.Membership
	result := h.db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&memberships)

	if result.Error != nil {
		http.Error(w, "Error retrieving memberships", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(memberships)
}
